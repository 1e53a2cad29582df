package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is used for every date cell, on screen and in exports.
const DateLayout = "2006-01-02"

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount as "$1,234.56".
func FormatMoney(v float64) string {
	if v < 0 {
		return "-$" + printer.Sprintf("%.2f", math.Abs(v))
	}
	return "$" + printer.Sprintf("%.2f", v)
}

// FormatTotal renders a summary amount as "Total: $ 1,234.56".
func FormatTotal(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return "Total: " + sign + "$ " + printer.Sprintf("%.2f", math.Abs(v))
}

// FormatCount renders a group or grand count such as "12 orders".
func FormatCount(n int, label string) string {
	if label == "" {
		label = "rows"
	}
	return printer.Sprintf("%d %s", n, label)
}

// FormatValue renders a raw record value for column c.
func FormatValue(c Column, v any) string {
	if v == nil {
		return ""
	}
	switch c.Kind {
	case Money:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprint(v)
		}
		return FormatMoney(f)
	case Date:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Sprint(v)
		}
		if t.IsZero() {
			return ""
		}
		return t.Format(DateLayout)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Sprint(v)
		}
		if b {
			return orDefault(c.TrueText, "Yes")
		}
		return orDefault(c.FalseText, "No")
	case Count:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprint(v)
		}
		return strconv.FormatInt(int64(f), 10)
	}
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(DateLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
