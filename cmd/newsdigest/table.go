package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"NewsDigest/internal/domain"
)

var historyHeader = []string{"PROCESSED", "PUBLISHED", "TITLE", "URL"}

// renderHistory prints processed articles as a borderless table.
func renderHistory(w io.Writer, articles []domain.ProcessedArticle) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{a.ProcessedAt.Format("2006-01-02 15:04"), a.PublishedAt, a.Title, a.URL})
	}

	table.Header(historyHeader)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
