package decode

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/listing"
)

const prefix = "소상공인시장진흥공단_상가(상권)정보_"

const header = "상가업소번호,상호명,지점명,표준산업분류코드,표준산업분류명,층정보,경도,위도\n"

func regionCSV(rows ...string) string {
	s := header
	for _, r := range rows {
		s += r + "\n"
	}
	return s
}

type entry struct {
	name string
	body string
}

func makeArchive(t *testing.T, entries ...entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), prefix+"202409.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func standardArchive(t *testing.T) string {
	return makeArchive(t,
		entry{prefix + "서울_202409.csv", regionCSV(
			"MA01,커피하우스,,I56221,커피 전문점,1,127.0,37.6",
			"MA02,분식천국,강남점,I56111,한식 음식점업,B1,127.02,37.49",
		)},
		entry{prefix + "부산_202409.csv", regionCSV(
			"MA10,해운대횟집,,I56111,한식 음식점업,2,129.16,35.16",
		)},
		entry{prefix + "신규지역_202409.csv", regionCSV(
			"MA20,새가게,,I47,소매업,,128.0,36.0",
		)},
	)
}

func TestDecode_WritesOnePartitionPerRegion(t *testing.T) {
	staging := t.TempDir()
	report, err := New(Options{}).Decode(context.Background(), standardArchive(t), staging)
	require.NoError(t, err)

	assert.Len(t, report.Succeeded, 3)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 4, report.Rows())

	for _, name := range []string{"seoul.parquet", "busan.parquet", "신규지역.parquet"} {
		assert.FileExists(t, filepath.Join(staging, name))
	}

	tbl, err := listing.ReadParquetFile(filepath.Join(staging, "seoul.parquet"))
	require.NoError(t, err)
	assert.Equal(t, listing.ColStoreID, tbl.Columns[0])
	assert.True(t, tbl.Has(listing.ColFloorInfo))
	assert.Equal(t, listing.KindString, tbl.Rows[0][tbl.Index(listing.ColFloorInfo)].Kind())
	assert.True(t, tbl.Rows[0][tbl.Index(listing.ColBranchName)].IsNull())
	assert.Equal(t, 2, tbl.Len())

	var unknown RegionResult
	for _, r := range report.Succeeded {
		if r.Label == "신규지역" {
			unknown = r
		}
	}
	assert.False(t, unknown.Known)
	assert.Equal(t, "신규지역", unknown.Tag)
}

func TestDecode_Idempotent(t *testing.T) {
	archive := standardArchive(t)

	first := t.TempDir()
	_, err := New(Options{Workers: 1}).Decode(context.Background(), archive, first)
	require.NoError(t, err)

	second := t.TempDir()
	_, err = New(Options{Workers: 4}).Decode(context.Background(), archive, second)
	require.NoError(t, err)

	// Re-decoding over existing partitions must also yield the same bytes.
	_, err = New(Options{Workers: 2}).Decode(context.Background(), archive, first)
	require.NoError(t, err)

	entries, err := os.ReadDir(first)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		a, err := os.ReadFile(filepath.Join(first, e.Name()))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, e.Name()))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a, b), "%s differs between runs", e.Name())
	}
}

func brokenArchive(t *testing.T) string {
	return makeArchive(t,
		entry{prefix + "부산_202409.csv", regionCSV("MA10,횟집,,I56111,한식,2,129.16,35.16")},
		entry{prefix + "서울_202409.csv", regionCSV("MA01,카페,,I56221,커피,1,127.0,37.6")},
		entry{prefix + "제주_202409.csv", regionCSV("MA30,too,many,fields,in,this,row,1,2,3")},
	)
}

func TestDecode_IsolatePolicy(t *testing.T) {
	staging := t.TempDir()
	report, err := New(Options{Policy: config.PolicyIsolate}).Decode(context.Background(), brokenArchive(t), staging)
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Same(t, report, convErr.Report)

	assert.Len(t, report.Succeeded, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "jeju", report.Failed[0].Tag)
	assert.NotEmpty(t, report.Failed[0].Error)
	assert.Len(t, report.Partitions(), 2)

	assert.FileExists(t, filepath.Join(staging, "seoul.parquet"))
	assert.FileExists(t, filepath.Join(staging, "busan.parquet"))
	assert.NoFileExists(t, filepath.Join(staging, "jeju.parquet"))
}

func TestDecode_IsolateDropsStalePartition(t *testing.T) {
	staging := t.TempDir()
	stale := filepath.Join(staging, "jeju.parquet")
	require.NoError(t, os.WriteFile(stale, []byte("last run"), 0o644))

	report, err := New(Options{}).Decode(context.Background(), brokenArchive(t), staging)
	require.Error(t, err)

	assert.Equal(t, []string{stale}, report.Stale)
	assert.NoFileExists(t, stale)
	assert.Len(t, report.Partitions(), 2)
}

func TestDecode_NoRegionFiles(t *testing.T) {
	staging := t.TempDir()
	archive := makeArchive(t, entry{"readme.txt", "nothing here"})

	report, err := New(Options{}).Decode(context.Background(), archive, staging)
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.ErrorIs(t, err, ErrNoRegionFiles)
	assert.Empty(t, report.Partitions())
	assert.Equal(t, ErrNoRegionFiles.Error(), err.Error())

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecode_PaddedHeaders(t *testing.T) {
	staging := t.TempDir()
	archive := makeArchive(t, entry{prefix + "서울_202409.csv",
		"상가업소번호, 상호명 , 층정보,경도,위도\nMA01,카페,1,127.0,37.6\n"})

	_, err := New(Options{}).Decode(context.Background(), archive, staging)
	require.NoError(t, err)

	tbl, err := listing.ReadParquetFile(filepath.Join(staging, "seoul.parquet"))
	require.NoError(t, err)
	assert.Equal(t, []string{listing.ColStoreID, listing.ColStoreName, listing.ColFloorInfo, listing.ColLongitude, listing.ColLatitude}, tbl.Columns)
	assert.Equal(t, listing.KindString, tbl.Rows[0][tbl.Index(listing.ColFloorInfo)].Kind())
}

func TestDecode_FailFastPolicy(t *testing.T) {
	staging := t.TempDir()
	report, err := New(Options{Policy: config.PolicyFailFast}).Decode(context.Background(), brokenArchive(t), staging)
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Len(t, report.Removed, 2)
	assert.Empty(t, report.Partitions())

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "fail-fast must not leave partitions from the aborted run")
}

func TestDecode_DuplicateTag(t *testing.T) {
	archive := makeArchive(t,
		entry{prefix + "서울_1.csv", regionCSV("MA01,a,,I1,x,1,127.0,37.6")},
		entry{prefix + "서울_2.csv", regionCSV("MA02,b,,I1,x,1,127.0,37.6")},
	)

	report, err := New(Options{}).Decode(context.Background(), archive, t.TempDir())
	require.Error(t, err)
	require.Len(t, report.Succeeded, 1)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, prefix+"서울_2.csv", report.Failed[0].File)
}

func TestDecode_RejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	archive := makeArchive(t, entry{"../evil.csv", "a\n1\n"})

	scratch := filepath.Join(root, "scratch")
	_, err := New(Options{ScratchDir: scratch}).Decode(context.Background(), archive, filepath.Join(root, "staging"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "evil.csv"))
}

func TestDecode_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := New(Options{}).Decode(context.Background(), path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: ")
}

func TestDecode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Decode(ctx, standardArchive(t), t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegionLabel(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"/tmp/" + prefix + "서울_202409.csv", "서울", false},
		{prefix + "제주.csv", "제주", false},
		{"a_b_c_d.csv", "c", false},
		{"only_two.csv", "", true},
		{"a_b_.csv", "", true},
	}

	for _, tt := range tests {
		got, err := regionLabel(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("regionLabel(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("regionLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPlan_DecomposedLabel(t *testing.T) {
	jobs := plan([]string{norm.NFD.String(prefix + "제주_2024.csv")})
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].known)
	assert.Equal(t, "jeju", jobs[0].tag)
}
