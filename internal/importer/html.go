package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// ParseHTML parses Netscape bookmark HTML. Each bookmark is filed under the
// innermost folder containing it; bookmarks outside any folder, or inside a
// folder whose name fails validation, land in Unsorted. Links without a
// valid URL are dropped. Bookmarks without ADD_DATE are stamped with now.
func ParseHTML(r io.Reader, now time.Time) (Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Document{}, &FormatError{Reason: msgInvalidFormat, Err: err}
	}

	var directories []string
	var bookmarks []model.Bookmark
	dropped := 0

	// Track current folder stack for hierarchy; "" marks an invalid folder.
	var folderStack []string
	var pendingFolder *string // folder waiting to be pushed on next DL

	current := func() string {
		if len(folderStack) == 0 || folderStack[len(folderStack)-1] == "" {
			return model.UnsortedDirectory
		}
		return folderStack[len(folderStack)-1]
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name, err := validate.ValidateDirectoryName(getTextContent(n))
				if err != nil {
					name = ""
				} else {
					directories = append(directories, name)
				}
				// Pushed when we see the next DL
				pendingFolder = &name
				return // Don't recurse into H3

			case "a":
				rawURL := getAttr(n, "href")
				url, err := validate.ValidateAndSanitizeURL(rawURL)
				if err != nil {
					dropped++
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = url // fallback to URL as title
				}

				added := now
				if addDate := getAttr(n, "add_date"); addDate != "" {
					if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil && ts > 0 {
						added = time.Unix(ts, 0)
					}
				}

				bookmarks = append(bookmarks, model.Bookmark{
					ID:        int64(len(bookmarks) + 1),
					URL:       url,
					Title:     validate.SanitizeTitle(title),
					Tags:      validate.ParseAndValidateTags(getAttr(n, "tags")),
					DateAdded: model.FormatDate(added),
					Directory: current(),
				})
				return // Don't recurse into A

			case "dl":
				// If we have a pending folder, push it now
				pushedFolder := false
				if pendingFolder != nil {
					folderStack = append(folderStack, *pendingFolder)
					pendingFolder = nil
					pushedFolder = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushedFolder {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)

	valid, invalid := validate.FilterBookmarks(bookmarks)
	return finish(valid, directories, dropped+invalid)
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
