package htmldriver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/cboone/pagewalk/driver"
)

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, name, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// setBool sets or removes a boolean attribute such as checked.
func setBool(n *html.Node, name string, on bool) {
	if on {
		setAttr(n, name, "")
	} else {
		removeAttr(n, name)
	}
}

func inputType(n *html.Node) string {
	t := strings.ToLower(attr(n, "type"))
	if t == "" {
		return "text"
	}
	return t
}

func isInput(n *html.Node, typ string) bool {
	return n.Data == "input" && inputType(n) == typ
}

func disabled(n *html.Node) bool {
	return hasAttr(n, "disabled")
}

var nonText = map[string]bool{
	"checkbox": true, "radio": true, "hidden": true, "submit": true,
	"button": true, "reset": true, "image": true, "file": true,
}

// editable returns driver.ErrNotInteractable unless n accepts typed text.
func editable(n *html.Node) error {
	switch {
	case n.Data == "textarea":
	case n.Data == "input" && !nonText[inputType(n)]:
	default:
		return driver.ErrNotInteractable
	}
	if disabled(n) || hasAttr(n, "readonly") || !displayed(n) {
		return driver.ErrNotInteractable
	}
	return nil
}

var neverRendered = map[string]bool{
	"head": true, "script": true, "style": true, "title": true,
	"template": true, "noscript": true, "meta": true, "link": true,
}

// hiddenSelf reports whether n itself is hidden, ignoring ancestors.
func hiddenSelf(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if neverRendered[n.Data] || hasAttr(n, "hidden") || isInput(n, "hidden") {
		return true
	}
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(v))
		if (k == "display" && v == "none") || (k == "visibility" && v == "hidden") {
			return true
		}
	}
	return false
}

func displayed(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if hiddenSelf(p) {
			return false
		}
	}
	return true
}

var block = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// visibleText writes the text of n's displayed descendants, separating block
// elements with spaces.
func visibleText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if hiddenSelf(c) {
				continue
			}
			if block[c.Data] {
				b.WriteByte(' ')
			}
			visibleText(b, c)
			if block[c.Data] {
				b.WriteByte(' ')
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func optionVal(s *goquery.Selection) string {
	if v, ok := s.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(s.Text())
}

// value returns the current form value of the first node in s.
func value(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "textarea":
		return s.Text()
	case "option":
		return optionVal(s)
	case "select":
		selected := s.Find("option[selected]")
		if selected.Length() == 0 {
			selected = s.Find("option")
		}
		if selected.Length() == 0 {
			return ""
		}
		return optionVal(selected.First())
	default:
		v, _ := s.Attr("value")
		return v
	}
}

func setValue(n *html.Node, v string) {
	if n.Data != "textarea" {
		setAttr(n, "value", v)
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if v != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	}
}

func selectRadio(doc *goquery.Document, n *html.Node) {
	name := attr(n, "name")
	if name != "" {
		doc.Find(`input[type="radio"]`).Each(func(_ int, s *goquery.Selection) {
			if attr(s.Get(0), "name") == name {
				removeAttr(s.Get(0), "checked")
			}
		})
	}
	setBool(n, "checked", true)
}

func selectOption(n *html.Node) {
	var sel *html.Node
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "select" {
			sel = p
			break
		}
	}
	if sel == nil {
		setBool(n, "selected", true)
		return
	}
	if hasAttr(sel, "multiple") {
		setBool(n, "selected", !hasAttr(n, "selected"))
		return
	}
	goquery.NewDocumentFromNode(sel).Find("option").Each(func(_ int, s *goquery.Selection) {
		removeAttr(s.Get(0), "selected")
	})
	setBool(n, "selected", true)
}
