package pgstore

import (
	"fmt"
	"time"
)

// Config holds the PostgreSQL connection settings consumed by NewDB.
//
// Zero values are filled from the default tags before validation, so a
// Config loaded from YAML only needs the credentials and database name.
type Config struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `yaml:"host"     validate:"required,hostname|ip"`
	// Port is the PostgreSQL server port.
	Port int `yaml:"port"     default:"5432" validate:"gte=1,lte=65535"`
	// User is the database user name.
	User string `yaml:"user"     validate:"required"`
	// Password is the database user password.
	Password string `yaml:"password" validate:"required"`
	// Database is the database name to connect to.
	Database string `yaml:"database" validate:"required"`

	// SSLMode selects the SSL negotiation mode for the connection.
	SSLMode string `yaml:"sslmode"          default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	// ApplicationName is reported to the server and shows up in
	// pg_stat_activity. Helpful when several services share a cluster.
	ApplicationName string `yaml:"application_name" default:"repokit"`
	// ConnectTimeout bounds how long establishing a connection may take.
	ConnectTimeout time.Duration `yaml:"connect_timeout"  default:"10s"`

	// PoolMaxConns caps the number of connections in the pool.
	PoolMaxConns int32 `yaml:"pool_max_conns"          default:"4"`
	// PoolMinConns is the number of connections the pool keeps open.
	PoolMinConns int32 `yaml:"pool_min_conns"          default:"1"`
	// PoolMaxConnLifetime is the maximum lifetime of a single connection.
	PoolMaxConnLifetime time.Duration `yaml:"pool_max_conn_lifetime"  default:"1h"`
	// PoolMaxConnIdleTime is how long a connection may sit idle in the pool.
	PoolMaxConnIdleTime time.Duration `yaml:"pool_max_conn_idle_time" default:"30m"`

	// Debug enables query logging through the configured logger.
	Debug bool `yaml:"debug" default:"false"`
}

// dsn renders the config as a keyword/value connection string.
func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s connect_timeout=%d",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
		c.ApplicationName,
		int(c.ConnectTimeout.Seconds()),
	)
}
