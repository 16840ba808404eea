package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ParseDocument parses an html body, decoding it to utf-8 according to the
// charset given by `contentType` or declared by the document itself.
func ParseDocument(body []byte, contentType string) (*goquery.Document, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" {
		// windows-1252 is only the fallback guess, undeclared pages are utf-8
		return goquery.NewDocumentFromReader(bytes.NewReader(body))
	}
	return goquery.NewDocumentFromReader(enc.NewDecoder().Reader(bytes.NewReader(body)))
}

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Texts returns the trimmed text content of each node in `sel`, in document
// order. Nodes without any text still produce an (empty) entry.
func Texts(sel *goquery.Selection) []string {
	texts := make([]string, len(sel.Nodes))
	for i, n := range sel.Nodes {
		texts[i] = strings.TrimSpace(removeNonPrintable(GetText(n)))
	}
	return texts
}

// InputValue returns the value attribute of the input with the given id,
// ok is false if there is no such input or it has no value attribute.
func InputValue(doc *goquery.Document, id string) (value string, ok bool) {
	sel := doc.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Attr("value")
}
