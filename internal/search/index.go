// Package search maintains a full-text index over articles and notes.
package search

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/driftrss/drift/internal/storage"
)

// Result is one search hit, either an article or a note.
type Result struct {
	Score   float64
	Article *storage.Article
	Note    *storage.Note
}

func (r *Result) IsNote() bool { return r.Note != nil }

type Index struct {
	store *storage.Store
	idx   bleve.Index
}

// Open creates or opens the bleve index at indexPath and loads current data.
func Open(store *storage.Store, indexPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	index := &Index{store: store, idx: idx}
	if err := index.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return index, nil
}

func (x *Index) Close() error {
	return x.idx.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	body := bleve.NewTextFieldMapping()
	body.Analyzer = standard.Name
	body.Store = true
	body.IncludeTermVectors = false

	feedID := bleve.NewTextFieldMapping()
	feedID.Analyzer = standard.Name
	feedID.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("body", body)
	dm.AddFieldMappingsAt("feed_id", feedID)

	im.DefaultMapping = dm
	return im
}

func (x *Index) reindexAll() error {
	feeds, err := x.store.GetAllFeeds()
	if err != nil {
		return err
	}

	batch := x.idx.NewBatch()
	for _, f := range feeds {
		articles, err := x.store.GetArticles(f.ID, 0)
		if err != nil {
			continue
		}
		for _, a := range articles {
			if err := batch.Index(articleDocID(a.ID), articleDoc(a)); err != nil {
				return err
			}
		}
	}

	notes, err := x.store.GetAllNotes()
	if err != nil {
		return err
	}
	for _, n := range notes {
		if err := batch.Index(noteDocID(n.ID), noteDoc(n)); err != nil {
			return err
		}
	}
	return x.idx.Batch(batch)
}

// IndexArticles adds or refreshes the given articles. Called after a feed
// refresh.
func (x *Index) IndexArticles(articles []*storage.Article) error {
	batch := x.idx.NewBatch()
	for _, a := range articles {
		if err := batch.Index(articleDocID(a.ID), articleDoc(a)); err != nil {
			return err
		}
	}
	return x.idx.Batch(batch)
}

// IndexNote adds or refreshes one note.
func (x *Index) IndexNote(note *storage.Note) error {
	return x.idx.Index(noteDocID(note.ID), noteDoc(note))
}

func (x *Index) RemoveNote(id string) error {
	return x.idx.Delete(noteDocID(id))
}

func (x *Index) RemoveArticle(id string) error {
	return x.idx.Delete(articleDocID(id))
}

// RemoveFeed drops every article document belonging to the feed.
func (x *Index) RemoveFeed(feedID string) {
	tq := bleve.NewTermQuery(feedID)
	tq.SetField("feed_id")

	from := 0
	const size = 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, size, from, false)
		res, err := x.idx.Search(req)
		if err != nil || len(res.Hits) == 0 {
			return
		}
		for _, h := range res.Hits {
			_ = x.idx.Delete(h.ID)
		}
		if len(res.Hits) < size {
			return
		}
		from += size
	}
}

// Search runs a tokenized disjunction query across titles and bodies, titles
// boosted. Queries shorter than two characters return nothing.
func (x *Index) Search(query string, limit int) ([]*Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)

		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)

		qb := bleve.NewMatchQuery(tok)
		qb.SetField("body")
		qb.SetBoost(1.0)
		qs = append(qs, qb)

		qbp := bleve.NewPrefixQuery(tok)
		qbp.SetField("body")
		qbp.SetBoost(0.8)
		qs = append(qs, qbp)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "body", "feed_id"}
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{Score: h.Score}
		switch {
		case strings.HasPrefix(h.ID, "article:"):
			id := strings.TrimPrefix(h.ID, "article:")
			// Prefer the live record; fall back to the stored fields
			// when it has already expired.
			if a, err := x.store.GetArticle(id); err == nil {
				r.Article = a
			} else {
				a := &storage.Article{ID: id}
				a.Title, _ = h.Fields["title"].(string)
				a.Description, _ = h.Fields["body"].(string)
				a.FeedID, _ = h.Fields["feed_id"].(string)
				r.Article = a
			}
		case strings.HasPrefix(h.ID, "note:"):
			id := strings.TrimPrefix(h.ID, "note:")
			if n, err := x.store.GetNote(id); err == nil {
				r.Note = n
			} else {
				n := &storage.Note{ID: id}
				n.Title, _ = h.Fields["title"].(string)
				r.Note = n
			}
		default:
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (x *Index) DocCount() (int, error) {
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return 0, err
	}
	return int(res.Total), nil
}

func articleDoc(a *storage.Article) map[string]any {
	return map[string]any{
		"type":    "article",
		"feed_id": a.FeedID,
		"title":   a.Title,
		"body":    a.Description + "\n" + a.AISummary,
	}
}

func noteDoc(n *storage.Note) map[string]any {
	return map[string]any{
		"type":  "note",
		"title": n.Title,
		"body":  n.Content + "\n" + strings.Join(n.Tags, " "),
	}
}

func articleDocID(id string) string { return "article:" + id }
func noteDocID(id string) string    { return "note:" + id }

func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		if term := current.String(); len(term) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}
	if term := current.String(); len(term) > 1 {
		terms = append(terms, term)
	}
	return terms
}
