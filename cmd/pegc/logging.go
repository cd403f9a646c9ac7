package main

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pegkit/pegc/ascii"
)

// prettyFormatter writes one line per entry, `level: message` followed
// by the fields sorted by name
type prettyFormatter struct {
	theme ascii.Theme
}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteString(ascii.Paint(p.levelColor(e.Level), e.Level.String()))
	b.WriteString(": ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := fmt.Sprint(e.Data[k])
		if strings.ContainsAny(val, " \t\n\"") {
			val = fmt.Sprintf("%q", val)
		}
		b.WriteString(" ")
		b.WriteString(ascii.Paint(p.theme.Muted, k+"="))
		b.WriteString(val)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (p *prettyFormatter) levelColor(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return p.theme.Error
	case logrus.WarnLevel:
		return p.theme.Warning
	case logrus.InfoLevel:
		return p.theme.Info
	default:
		return p.theme.Muted
	}
}
