package api

type DocumentPage struct {
	Index int
	Text  string
}

type DocumentContent struct {
	Title string
	Pages []DocumentPage
}

// TextDocument wraps a single piece of text into a one-page document.
func TextDocument(title, text string) *DocumentContent {
	return &DocumentContent{
		Title: title,
		Pages: []DocumentPage{{Index: 0, Text: text}},
	}
}

func (dc DocumentContent) Text() string {
	text := ""
	for _, page := range dc.Pages {
		text += page.Text
	}
	return text
}

type ScoredDocument struct {
	// Required
	Content string
	Score   float64

	// Optional
	Title  string
	Source string
}

// Contents returns the content of every document, keeping their order.
func Contents(docs []*ScoredDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Content)
	}
	return out
}
