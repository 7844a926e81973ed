// Package output renders lookup outcomes as plain text.
package output

import (
	"fmt"
	"io"
	"strings"

	"stockquote/internal/provider"
)

// Field labels of a found quote, in print order.
const (
	LabelName      = "名称"
	LabelCode      = "代码"
	LabelPrice     = "最新价"
	LabelChange    = "涨跌额"
	LabelChangePct = "涨跌幅"
)

// NoData opens every message that carries no quote.
const NoData = "未找到相关行情数据 (no data found)"

// Format renders o. Numbers are printed as the page showed them.
func Format(o provider.Outcome) string {
	var b strings.Builder
	switch {
	case o.Status == provider.StatusFound && o.Quote != nil:
		q := o.Quote
		for _, line := range [][2]string{
			{LabelName, q.Name},
			{LabelCode, q.Code},
			{LabelPrice, q.Price.Text},
			{LabelChange, q.Change.Text},
			{LabelChangePct, q.ChangePct.Text},
		} {
			fmt.Fprintf(&b, "%s: %s\n", line[0], line[1])
		}
	case o.Status == provider.StatusUnavailable:
		name := "instrument"
		if o.Instrument != nil {
			name = o.Instrument.String()
		}
		fmt.Fprintf(&b, "%s for %s: 实时行情暂不可用 (live data unavailable)\n", NoData, name)
		if o.Reason != "" {
			fmt.Fprintf(&b, "reason: %s\n", o.Reason)
		}
	default:
		fmt.Fprintf(&b, "%s for %q\n", NoData, o.Query)
		if o.Reason != "" {
			fmt.Fprintf(&b, "reason: %s\n", o.Reason)
		}
	}
	return b.String()
}

// Fprint writes Format(o) to w.
func Fprint(w io.Writer, o provider.Outcome) error {
	_, err := io.WriteString(w, Format(o))
	return err
}
