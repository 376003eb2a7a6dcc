package htmlutil

import (
	"bytes"
	"strings"

	"harvest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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
	// block elements would otherwise glue words of adjacent paragraphs together
	if node.Type == html.ElementNode && (node.Data == "br" || node.Data == "p" || node.Data == "div" || node.Data == "li") {
		buffer.WriteByte(' ')
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// PlainText strips markup from an html fragment and collapses whitespace,
// content that does not parse is returned with whitespace collapsed.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return textutil.CollapseWhitespace(content)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return textutil.CollapseWhitespace(content)
	}
	var buffer bytes.Buffer
	for _, n := range doc.Find("body").Nodes {
		getTextRecursive(n, &buffer)
	}
	return textutil.CollapseWhitespace(buffer.String())
}
