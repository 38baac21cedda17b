package repokit_test

import (
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit"
	"github.com/rise-and-shine/repokit/predicate"
	"github.com/rise-and-shine/repokit/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	schema := record.MustInfer[user]()

	tests := []struct {
		name     string
		input    string
		want     []repokit.Order
		wantErr  bool
		wantCode string
	}{
		{
			name:  "multiple keys with directions",
			input: "username:asc,age:desc",
			want:  []repokit.Order{repokit.Asc("username"), repokit.Desc("age")},
		},
		{
			name:  "direction defaults to ascending",
			input: "username",
			want:  []repokit.Order{repokit.Asc("username")},
		},
		{
			name:  "spaces and case are tolerated",
			input: " username : DESC , age ",
			want:  []repokit.Order{repokit.Desc("username"), repokit.Asc("age")},
		},
		{
			name:  "empty segments are skipped",
			input: "username,,age:desc,",
			want:  []repokit.Order{repokit.Asc("username"), repokit.Desc("age")},
		},
		{
			name:  "empty string yields no orders",
			input: "",
			want:  nil,
		},
		{
			name:     "unknown attribute is rejected",
			input:    "seniority:asc",
			wantErr:  true,
			wantCode: predicate.CodeInvalidAttribute,
		},
		{
			name:     "unknown attribute in a later segment is rejected",
			input:    "username:asc,seniority:desc",
			wantErr:  true,
			wantCode: predicate.CodeInvalidAttribute,
		},
		{
			name:    "malformed direction is rejected",
			input:   "age:sideways",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repokit.ParseOrder(schema, tc.input)

			if tc.wantErr {
				require.Error(t, err)
				if tc.wantCode != "" {
					assert.True(t, errx.IsCodeIn(err, tc.wantCode))
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "age:asc", repokit.Asc("age").String())
	assert.Equal(t, "age:desc", repokit.Desc("age").String())
}
