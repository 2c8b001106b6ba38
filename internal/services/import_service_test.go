package services

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/nimasrn/policy-desk/internal/company"
	"github.com/nimasrn/policy-desk/internal/importer"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

type memoryStore struct {
	mu       sync.Mutex
	policies []*model.Policy
}

func (s *memoryStore) InsertMany(ctx context.Context, policies []*model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, policies...)
	return nil
}

func (s *memoryStore) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.policies)), nil
}

func newTestImportService() (*ImportService, *memoryStore) {
	store := &memoryStore{}
	pipeline := importer.NewPipeline(store, company.NewNormalizer(company.DefaultTable), importer.DefaultOptions()).WithHeaderRows(1)
	return NewImportService(pipeline), store
}

const uploadCSV = `Customer Name,Mobile Number,Insurance Type,Insurance Company,Policy Number,Policy Start Date,Policy End Date,Premium Amount
Asha Rao,9876543210,HealthInsurance,star health,H-1,01/04/2024,31/03/2025,12000
,12345,Unknown,LIC,L-1,01/04/2024,31/03/2025,
`

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat([]byte(uploadCSV)))
	assert.Equal(t, FormatXLSX, DetectFormat([]byte("PK\x03\x04rest")))
	assert.Equal(t, FormatCSV, DetectFormat(nil))
}

func TestImportService_CSV(t *testing.T) {
	svc, store := newTestImportService()

	result, err := svc.ImportFile(context.Background(), "owner", []byte(uploadCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.NotEmpty(t, result.Errors)
	for _, e := range result.Errors {
		assert.Equal(t, 3, e.Row, "row numbers follow the sheet lines")
	}

	require.Len(t, store.policies, 1)
	assert.Equal(t, "H-1", store.policies[0].PolicyNumber)
	assert.Equal(t, "owner", store.policies[0].OwnerID)
}

func TestImportService_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Policies")
	require.NoError(t, err)
	for _, line := range [][]string{
		{"Customer Name", "Insurance Type", "Insurance Company", "Policy Number", "Policy Start Date", "Policy End Date"},
		{"Vikram", "LifeInsurance", "LIC", "L-9", "2024-05-01", "2044-05-01"},
	} {
		row := sheet.AddRow()
		for _, v := range line {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	svc, store := newTestImportService()
	result, err := svc.ImportFile(context.Background(), "owner", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, store.policies, 1)
	assert.Equal(t, model.LifeInsurance, store.policies[0].InsuranceType)
}

func TestImportService_Rejections(t *testing.T) {
	svc, _ := newTestImportService()
	ctx := context.Background()

	_, err := svc.ImportFile(ctx, "", []byte(uploadCSV))
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = svc.ImportFile(ctx, "owner", []byte("Customer Name,Policy Number\nAsha,P-1\n"))
	assert.ErrorIs(t, err, ErrUnreadableFile)
	assert.ErrorIs(t, err, importer.ErrMissingColumns)

	_, err = svc.ImportFile(ctx, "owner", []byte("PK\x03\x04not really a zip"))
	assert.ErrorIs(t, err, ErrUnreadableFile)

	_, err = svc.ImportFile(ctx, "owner", []byte("Customer Name,Insurance Type,Insurance Company,Policy Number,Policy Start Date,Policy End Date\n"))
	assert.ErrorIs(t, err, importer.ErrEmptyBatch)
}
