package download

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractImageURL parses an HTML document and returns the URL of the first
// embedded image, preferring an og:image meta tag over the first <img>
// element. The second return value is false when the page embeds no image.
func ExtractImageURL(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var first string
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if attr(n, "property") == "og:image" {
					if c := attr(n, "content"); c != "" {
						return c
					}
				}
			case "img":
				if src := attr(n, "src"); src != "" && first == "" {
					first = src
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if got := walk(c); got != "" {
				return got
			}
		}
		return ""
	}

	if got := walk(doc); got != "" {
		return got, true
	}
	if first != "" {
		return first, true
	}
	return "", false
}

// ResolveURL makes ref absolute against the page it was extracted from.
// Protocol-relative and path-relative references both occur in the wild.
func ResolveURL(page, ref string) (string, error) {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref, nil
	}
	base, err := url.Parse(page)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
