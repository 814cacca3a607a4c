package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	errIframeNotFound = errors.New("iframe node not found")
	errIframeNoSrc    = errors.New("iframe has no src attribute")
)

// iframeSrc locates the configured iframe on a detail page and returns its
// absolute src. Same-host relative URLs are rebuilt using the parent page's
// scheme and host. Both a missing node and a missing src are hard errors
// for that detail page.
func iframeSrc(parentURL string, html []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse detail page: %w", err)
	}

	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return "", fmt.Errorf("selector %q: %w", selector, errIframeNotFound)
	}
	if !node.Is("iframe") {
		node = node.Find("iframe").First()
		if node.Length() == 0 {
			return "", fmt.Errorf("selector %q: %w", selector, errIframeNotFound)
		}
	}

	src, ok := node.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("selector %q: %w", selector, errIframeNoSrc)
	}
	src = strings.TrimSpace(src)

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, nil
	}

	parent, err := url.Parse(parentURL)
	if err != nil {
		return "", fmt.Errorf("parse parent url: %w", err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse iframe src: %w", err)
	}
	return parent.ResolveReference(ref).String(), nil
}
