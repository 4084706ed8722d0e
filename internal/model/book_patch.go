package model

import "books-api/internal/pkg/optional"

// BookPatch is a sparse update of a Book. Only set fields are applied; a null
// Summary clears it.
type BookPatch struct {
	Title         optional.Value[string]
	Author        optional.Value[string]
	PublishedDate optional.Value[Date]
	Summary       optional.Value[string]
	Genre         optional.Value[string]
}

func (p BookPatch) Empty() bool {
	return !p.Title.Set && !p.Author.Set && !p.PublishedDate.Set && !p.Summary.Set && !p.Genre.Set
}

func (p BookPatch) Apply(b *Book) {
	if p.Title.Present() {
		b.Title = p.Title.Value
	}
	if p.Author.Present() {
		b.Author = p.Author.Value
	}
	if p.PublishedDate.Present() {
		b.PublishedDate = p.PublishedDate.Value
	}
	if p.Summary.Set {
		if p.Summary.Null {
			b.Summary = nil
		} else {
			summary := p.Summary.Value
			b.Summary = &summary
		}
	}
	if p.Genre.Present() {
		b.Genre = p.Genre.Value
	}
}

// Columns maps the set fields to their column names.
func (p BookPatch) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if p.Title.Present() {
		cols["title"] = p.Title.Value
	}
	if p.Author.Present() {
		cols["author"] = p.Author.Value
	}
	if p.PublishedDate.Present() {
		cols["published_date"] = p.PublishedDate.Value
	}
	if p.Summary.Set {
		if p.Summary.Null {
			cols["summary"] = nil
		} else {
			cols["summary"] = p.Summary.Value
		}
	}
	if p.Genre.Present() {
		cols["genre"] = p.Genre.Value
	}
	return cols
}
