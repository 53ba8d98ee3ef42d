package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

const exportCSV = "Username,Profile URL,# of Skill Badges Completed,# of Arcade Games,Eligible for Goodies\n" +
	"Ada,https://example.com/ada,19/19,2,TRUE\n" +
	"Grace,https://example.com/grace,12/19,0,FALSE\n" +
	",https://example.com/anon,3/19,0,FALSE\n" +
	"Ada,https://example.com/ada2,4/19,0,FALSE\n"

func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func assertExportParticipants(t *testing.T, res *FetchResult) {
	t.Helper()

	require.Len(t, res.Participants, 2)
	assert.Equal(t, leaderboard.Participant{
		Name:               "Ada",
		CompletedPaths:     19,
		TotalPaths:         leaderboard.TotalPaths,
		ArcadeGames:        leaderboard.ArcadeYes,
		EligibleForGoodies: true,
		OriginalIndex:      0,
	}, res.Participants[0])
	assert.Equal(t, "Grace", res.Participants[1].Name)
	assert.Equal(t, 12, res.Participants[1].CompletedPaths)
	assert.Equal(t, leaderboard.ArcadeNo, res.Participants[1].ArcadeGames)
	assert.Equal(t, 1, res.Participants[1].OriginalIndex)
	assert.Equal(t, 4, res.RowCount)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Ada"}, res.Duplicates)
}

func TestFileSourceHandler_CSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "H.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0600))

	src := &config.SourceConfig{Type: config.SourceTypeFile, File: &config.FileConfig{Path: path}}
	handler := NewFileSourceHandler()

	res, err := handler.FetchSnapshot(context.Background(), src)
	require.NoError(t, err)
	assertExportParticipants(t, res)
	assert.Equal(t, config.SourceFormatCSV, res.Format)
	assert.Equal(t, hashOf([]byte(exportCSV)), res.Hash)

	hash, err := handler.CurrentHash(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, res.Hash, hash)
}

func TestFileSourceHandler_XLSX(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, "Progress", [][]any{
		{},
		{"Username", "Profile URL", "# of Skill Badges Completed", "# of Arcade Games", "Eligible for Goodies"},
		{"Ada", "https://example.com/ada", "19/19", 2, "TRUE"},
		{"Grace", "https://example.com/grace", "12/19", 0, "FALSE"},
		{"", "https://example.com/anon", "3/19", 0, "FALSE"},
		{"Ada", "https://example.com/ada2", "4/19", 0, "FALSE"},
	})

	// no extension: the format is detected from the content
	path := filepath.Join(t.TempDir(), "export")
	require.NoError(t, os.WriteFile(path, data, 0600))

	src := &config.SourceConfig{
		Type:  config.SourceTypeFile,
		Sheet: "Progress",
		File:  &config.FileConfig{Path: path},
	}

	res, err := NewFileSourceHandler().FetchSnapshot(context.Background(), src)
	require.NoError(t, err)
	assertExportParticipants(t, res)
	assert.Equal(t, config.SourceFormatXLSX, res.Format)
	assert.Equal(t, hashOf(data), res.Hash)
}

func TestFileSourceHandler_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0600))
	headerless := filepath.Join(dir, "headerless.csv")
	require.NoError(t, os.WriteFile(headerless, []byte("foo,bar\n1,2\n"), 0600))
	big := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(big, bytes.Repeat([]byte("x"), 2<<20), 0600))

	tests := []struct {
		name    string
		src     *config.SourceConfig
		wantErr string
	}{
		{name: "nil config", src: nil, wantErr: "cannot be nil"},
		{name: "missing file section", src: &config.SourceConfig{Type: config.SourceTypeFile}, wantErr: "file configuration is required"},
		{name: "missing file", src: &config.SourceConfig{File: &config.FileConfig{Path: filepath.Join(dir, "nope.csv")}}, wantErr: "file not found"},
		{name: "empty file", src: &config.SourceConfig{File: &config.FileConfig{Path: emptyPath}}, wantErr: "is empty"},
		{name: "unknown columns", src: &config.SourceConfig{File: &config.FileConfig{Path: headerless}}, wantErr: "no participant name column"},
		{name: "too large", src: &config.SourceConfig{MaxSizeMiB: 1, File: &config.FileConfig{Path: big}}, wantErr: "above the limit"},
		{name: "bad workbook", src: &config.SourceConfig{Format: config.SourceFormatXLSX, File: &config.FileConfig{Path: headerless}}, wantErr: "failed to open workbook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewFileSourceHandler().FetchSnapshot(context.Background(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPSourceHandler(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exports/H.csv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(exportCSV))
	}))
	server.Config.SetKeepAlivesEnabled(false)
	defer server.Close()

	handler := NewHTTPSourceHandler(nil)

	res, err := handler.FetchSnapshot(context.Background(), &config.SourceConfig{
		Type: config.SourceTypeHTTP,
		HTTP: &config.HTTPConfig{URL: server.URL + "/exports/H.csv", Timeout: "5s"},
	})
	require.NoError(t, err)
	assertExportParticipants(t, res)

	_, err = handler.FetchSnapshot(context.Background(), &config.SourceConfig{
		Type: config.SourceTypeHTTP,
		HTTP: &config.HTTPConfig{URL: server.URL + "/missing.csv"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

type fakeObjectGetter struct {
	objects map[string][]byte
	input   *s3.GetObjectInput
}

func (f *fakeObjectGetter) GetObject(
	_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	f.input = params
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3SourceHandler(t *testing.T) {
	t.Parallel()

	getter := &fakeObjectGetter{objects: map[string][]byte{"facilitator/exports/H.csv": []byte(exportCSV)}}
	var gotCfg *config.S3Config
	handler := NewS3SourceHandler(func(_ context.Context, cfg *config.S3Config) (ObjectGetter, error) {
		gotCfg = cfg
		return getter, nil
	})

	src := &config.SourceConfig{
		Type: config.SourceTypeS3,
		S3:   &config.S3Config{Bucket: "facilitator", Key: "exports/H.csv", Endpoint: "https://r2.example.com"},
	}

	res, err := handler.FetchSnapshot(context.Background(), src)
	require.NoError(t, err)
	assertExportParticipants(t, res)
	assert.Equal(t, "https://r2.example.com", gotCfg.Endpoint)
	assert.Equal(t, "exports/H.csv", aws.ToString(getter.input.Key))

	src.S3.Key = "exports/missing.csv"
	_, err = handler.FetchSnapshot(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://facilitator/exports/missing.csv")

	assert.Error(t, handler.Validate(&config.SourceConfig{S3: &config.S3Config{Bucket: "b"}}))
}

func TestSourceHandlerFactory(t *testing.T) {
	t.Parallel()

	factory := NewSourceHandlerFactory()
	for _, typ := range []string{config.SourceTypeFile, config.SourceTypeHTTP, config.SourceTypeS3} {
		handler, err := factory.CreateHandler(typ)
		require.NoError(t, err, typ)
		assert.NotNil(t, handler, typ)
	}

	_, err := factory.CreateHandler("git")
	assert.Error(t, err)
}

func TestDecodeTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		data           []byte
		format         string
		fileName       string
		expectedFormat string
		expectedHeader []string
		expectedRows   int
		wantErr        bool
	}{
		{
			name:           "csv by extension with BOM and blank lines",
			data:           []byte("\xef\xbb\xbf\n\nUsername,Completed Paths\nada,3\n"),
			fileName:       "H.csv",
			expectedFormat: config.SourceFormatCSV,
			expectedHeader: []string{"Username", "Completed Paths"},
			expectedRows:   1,
		},
		{
			name:           "ragged csv rows",
			data:           []byte("Username,Completed Paths,Extra\nada,3\ngrace\n"),
			format:         config.SourceFormatCSV,
			expectedFormat: config.SourceFormatCSV,
			expectedHeader: []string{"Username", "Completed Paths", "Extra"},
			expectedRows:   2,
		},
		{
			name:    "blank csv has no header",
			data:    []byte(",,\n , \n"),
			format:  config.SourceFormatCSV,
			wantErr: true,
		},
		{
			name:    "unsupported format",
			data:    []byte("a"),
			format:  "ods",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table, err := DecodeTable(tt.data, tt.format, "", tt.fileName)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedFormat, table.Format)
			assert.Equal(t, tt.expectedHeader, table.Headers)
			assert.Len(t, table.Rows, tt.expectedRows)
		})
	}
}
