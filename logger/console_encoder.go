package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // palettes are static lookups shared by all encoder instances
var (
	timeColor     = color.RGB(148, 163, 184).Add(color.Faint)
	textColor     = color.RGB(226, 232, 240)
	metaKeyColor  = color.RGB(94, 234, 212)
	metaValColor  = color.RGB(226, 232, 240).Add(color.Faint)
	warnKeyColor  = color.RGB(251, 191, 36)
	warnValColor  = color.RGB(253, 230, 138)
	errorKeyColor = color.RGB(248, 113, 113)
	errorValColor = color.RGB(254, 202, 202)

	levelColors = map[zapcore.Level]*color.Color{
		zapcore.DebugLevel:  color.RGB(129, 140, 248).Add(color.Bold),
		zapcore.InfoLevel:   color.RGB(16, 185, 129).Add(color.Bold),
		zapcore.WarnLevel:   color.RGB(245, 158, 11).Add(color.Bold),
		zapcore.ErrorLevel:  color.RGB(248, 113, 113).Add(color.Bold),
		zapcore.DPanicLevel: color.RGB(244, 63, 94).Add(color.Bold),
		zapcore.PanicLevel:  color.RGB(244, 63, 94).Add(color.Bold),
		zapcore.FatalLevel:  color.RGB(217, 70, 239).Add(color.Bold),
	}

	levelEmoji = map[zapcore.Level]string{
		zapcore.DebugLevel:  "🧪",
		zapcore.InfoLevel:   "ℹ️ ", // added space for alignment
		zapcore.WarnLevel:   "⚠️ ", // added space for alignment
		zapcore.ErrorLevel:  "🚨",
		zapcore.DPanicLevel: "🚨",
		zapcore.PanicLevel:  "🚨",
		zapcore.FatalLevel:  "💥",
	}
)

// consoleEncoder re-renders zap's JSON output as a colored header line plus
// indented metadata. It exists for humans watching a terminal; production
// setups keep the json encoding untouched.
type consoleEncoder struct {
	zapcore.Encoder
}

// Clone ensures derived loggers keep the console encoder wrapper.
func (e *consoleEncoder) Clone() zapcore.Encoder {
	return &consoleEncoder{Encoder: e.Encoder.Clone()}
}

// newConsoleLogger builds a zap logger that writes through the console
// encoder. Caller tracking is off; Named loggers identify components.
func newConsoleLogger(cfg *zap.Config) *zap.Logger {
	enc := &consoleEncoder{Encoder: zapcore.NewJSONEncoder(cfg.EncoderConfig)}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}

// EncodeEntry formats a log entry as a header line followed by its
// pretty-printed metadata.
func (e *consoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}

	raw := append([]byte(nil), buf.Bytes()...)
	buf.Reset()

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &payload); err != nil {
		// Entries that cannot be re-rendered pass through untouched.
		buf.AppendString(string(raw))
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			buf.AppendByte('\n')
		}
		return buf, nil
	}

	buf.AppendString(header(entry))
	appendMeta(buf, metaFields(payload), entry.Level)

	return buf, nil
}

// header renders the "[time] emoji LEVEL message" line.
func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint("[" + ts.Format(time.DateTime) + "]"))
	b.WriteByte(' ')
	if emoji := levelEmoji[entry.Level]; emoji != "" {
		b.WriteString(emoji)
		b.WriteByte(' ')
	}
	b.WriteString(levelColor(entry.Level).Sprint(entry.Level.CapitalString()))
	if entry.Message != "" {
		b.WriteByte(' ')
		b.WriteString(messageColor(entry.Level).Sprint(entry.Message))
	}
	b.WriteByte('\n')

	return b.String()
}

// metaFields drops the payload keys already shown in the header.
func metaFields(payload map[string]any) map[string]any {
	meta := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case timeKey, levelKey, messageKey:
			continue
		default:
			meta[k] = v
		}
	}
	return meta
}

func appendMeta(buf *buffer.Buffer, meta map[string]any, level zapcore.Level) {
	if len(meta) == 0 {
		return
	}

	keyColor, valColor := metaColors(level)

	pretty, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		buf.AppendString(valColor.Sprint(fmt.Sprint(meta)))
		buf.AppendByte('\n')
		return
	}

	for _, line := range bytes.Split(pretty, []byte("\n")) {
		styled := styleMetaLine(line, keyColor, valColor)
		if styled == "" {
			continue
		}
		buf.AppendString(styled)
		buf.AppendByte('\n')
	}
}

// styleMetaLine colorizes one line of indented JSON, keeping the indent and
// splitting at the first colon so keys and values get separate colors.
func styleMetaLine(line []byte, keyColor, valColor *color.Color) string {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return ""
	}

	indentLen := len(line) - len(bytes.TrimLeft(line, " "))
	indent := string(line[:indentLen])

	colonIdx := bytes.IndexByte(trimmed, ':')
	if colonIdx == -1 {
		return indent + valColor.Sprint(string(trimmed))
	}

	key := string(trimmed[:colonIdx])
	rest := string(trimmed[colonIdx+1:])
	return indent + keyColor.Sprint(key) + ":" + valColor.Sprint(rest)
}

func levelColor(level zapcore.Level) *color.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return levelColors[zapcore.InfoLevel]
}

func messageColor(level zapcore.Level) *color.Color {
	switch level {
	case zapcore.WarnLevel:
		return warnValColor
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return errorValColor
	default:
		return textColor
	}
}

func metaColors(level zapcore.Level) (*color.Color, *color.Color) {
	switch level {
	case zapcore.WarnLevel:
		return warnKeyColor, warnValColor
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return errorKeyColor, errorValColor
	default:
		return metaKeyColor, metaValColor
	}
}
