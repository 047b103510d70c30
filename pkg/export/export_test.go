package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Grievance Report",
		Summary: []SummaryLine{{Label: "Total", Value: "2"}},
		Headers: []string{"Complaint ID", "Title", "Status"},
		Rows: [][]string{
			{"AB12CD34", "Pothole, near market", "new"},
			{"EF56GH78", "Streetlight out", "closed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Complaint ID,Title,Status", lines[0])
	assert.Equal(t, `AB12CD34,"Pothole, near market",new`, lines[1])
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only-one"})

	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty := sampleDataset()
	empty.Rows = nil
	out, err = NewPDFExporter().Render(empty)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderersDescribeOutput(t *testing.T) {
	var r Renderer = NewPDFExporter()
	assert.Equal(t, "application/pdf", r.ContentType())
	r = NewCSVExporter()
	assert.Equal(t, "csv", r.Extension())
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset())
	sum := 0.0
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, pdfPageWidth, sum, 0.001)
	assert.Greater(t, widths[1], widths[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "abcdefghi...", truncate(strings.Repeat("abcdefghij", 5), 20))
}
