package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"booking_id", "patient_name", "booking_date"},
		Rows: []map[string]string{
			{"booking_id": "b-1", "patient_name": "asha", "booking_date": "2025-01-06"},
			{"booking_id": "b-2", "patient_name": "ravi, k", "booking_date": "2025-01-07"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "booking_id,patient_name,booking_date\nb-1,asha,2025-01-06\nb-2,\"ravi, k\",2025-01-07\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"patient_name", "patient_mobile"},
		Rows: []map[string]string{
			{"patient_name": "=HYPERLINK(\"x\")", "patient_mobile": "+62 812 3456"},
			{"patient_name": "@sum", "patient_mobile": "-cmd"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "patient_name,patient_mobile\n\"'=HYPERLINK(\"\"x\"\")\",+62 812 3456\n'@sum,'-cmd\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "bookings")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Bookings")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Bookings", "A1")
	require.NoError(t, err)
	assert.Equal(t, "booking_id", header)

	name, err := f.GetCellValue("Bookings", "B3")
	require.NoError(t, err)
	assert.Equal(t, "ravi, k", name)
}
