package htmlutil

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Parse parses an html document out of a response body.
func Parse(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
}

// InputValue returns the value of the first input element named `name`, the
// boolean is false if there is no such input or its value is empty.
func InputValue(doc *goquery.Document, name string) (string, bool) {
	value := doc.Find(fmt.Sprintf(`input[name=%q]`, name)).First().AttrOr("value", "")
	return value, value != ""
}
