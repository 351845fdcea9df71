package extract

import (
	"strings"
	"testing"

	"github.com/hyperifyio/refsnap/internal/dom"
)

func BenchmarkStandard_Extract(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 5; i++ {
		sb.WriteString("<table><tr><th>Income</th><th>Old</th><th>New</th></tr>")
		for j := 0; j < 50; j++ {
			sb.WriteString("<tr><td>Rs. 3,00,001 - 7,00,000</td><td>5%</td><td>10%</td></tr>")
		}
		sb.WriteString("</table>")
	}
	for i := 0; i < 20; i++ {
		sb.WriteString("<p>The new tax regime is the default for individuals filing returns this year.</p>")
	}
	sb.WriteString("</body></html>")
	doc, err := dom.ParseString(sb.String())
	if err != nil {
		b.Fatalf("parse: %v", err)
	}
	ex := Standard{Options: DefaultOptions()}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ex.Extract(doc); err != nil {
			b.Fatal(err)
		}
	}
}
