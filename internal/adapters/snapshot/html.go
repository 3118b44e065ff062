package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// El dashboard incrusta el snapshot como `const data = {...};` en un <script>.
var embeddedData = regexp.MustCompile(`(?s)const data\s*=\s*({.*?});`)

// ExtractFromHTML devuelve el JSON del snapshot incrustado en el dashboard.
func ExtractFromHTML(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, domain.MalformedInput("", fmt.Errorf("parse html: %w", err))
	}

	var found []byte
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if m := embeddedData.FindStringSubmatch(sel.Text()); m != nil {
			found = []byte(m[1])
			return false
		}
		return true
	})
	if found == nil {
		return nil, domain.MalformedInput("", errors.New("no embedded data in dashboard"))
	}
	return found, nil
}

// isHTML detecta si el contenido es una página en lugar de JSON.
func isHTML(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

// decodeAny acepta tanto el JSON directo como el dashboard HTML.
func decodeAny(data []byte) (domain.Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Snapshot{}, domain.MissingInput("", "empty snapshot")
	}
	if isHTML(data) {
		raw, err := ExtractFromHTML(data)
		if err != nil {
			return domain.Snapshot{}, err
		}
		data = raw
	}
	return Decode(data)
}
