package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Date", "Status"},
		Rows: [][]string{
			{"2025-06-02", "complete"},
			{"2025-06-03", "absent"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date,Status\n2025-06-02,complete\n2025-06-03,absent\n", string(out))
}

func TestCSVRenderQuotesSpecialCharacters(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Reason"},
		Rows:    [][]string{{"sick, with note"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"sick, with note"`)
}

func TestCSVRenderRejectsRaggedRows(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{
		Headers: []string{"A", "B"},
		Rows:    [][]string{{"only-one"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 cells, want 2")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
