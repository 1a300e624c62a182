package cli

import (
	"database/sql"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/probe"
)

// fakeStores answers version probes per database name. Databases without
// an entry fail to connect.
type fakeStores struct {
	t        *testing.T
	versions map[string]string

	mu     sync.Mutex
	mocks  []sqlmock.Sqlmock
	probed []string
}

func (s *fakeStores) open(id conn.Identity) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probed = append(s.probed, id.Database)

	v, ok := s.versions[id.Database]
	if !ok {
		return nil, errors.New("connection refused")
	}
	db, mock, err := sqlmock.New()
	require.NoError(s.t, err)
	mock.ExpectQuery(regexp.QuoteMeta(probe.VersionQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(v))
	mock.ExpectClose()
	s.mocks = append(s.mocks, mock)
	return db, nil
}

func (s *fakeStores) verify() {
	for _, m := range s.mocks {
		assert.NoError(s.t, m.ExpectationsWereMet())
	}
}

func TestProbe_Undeclared(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{"billing": "8.1.32-e0a67e68e5"}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open}, "probe", "--catalog", testCatalog)
	require.NoError(t, err)
	stores.verify()

	assert.Equal(t, []string{"billing"}, stores.probed, "declared versions are not probed")
	assert.Regexp(t, `a\s+7\.0\.1\s+declared`, out)
	assert.Regexp(t, `b\s+8\.1\.32\s+probed`, out)
}

func TestProbe_All(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{"shop": "7.1.0", "billing": "6.5"}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open},
		"probe", "--catalog", testCatalog, "--all", "--format", "json")
	require.NoError(t, err)
	stores.verify()

	var results []ProbeResult
	decodeResponse(t, out, &results)
	require.Len(t, results, 2)
	assert.Equal(t, []ProbeResult{
		{Connection: "a", Target: results[0].Target, Version: "7.1.0", Source: "probed"},
		{Connection: "b", Target: results[1].Target, Version: "6.5.0", Source: "probed"},
	}, results)
	assert.Contains(t, results[0].Target, "a1.example:3306")
}

func TestProbe_Failure(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open}, "probe", "--catalog", testCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E006")

	assert.Regexp(t, `b\s+-\s+failed`, out)
	assert.Contains(t, out, "✗ b: open")
	assert.Contains(t, out, "connection refused")
}

func TestProbe_FailureJSON(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open},
		"probe", "--catalog", testCatalog, "--format", "json")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeProbe, resp.Error.Code)
	assert.Equal(t, "1 connection(s) could not be probed", resp.Error.Message)
}

func TestCompile_ProbeFillsVersions(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{"billing": "7.0.1"}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open},
		"compile", testPlan("user_orders"), "--catalog", testCatalog, "--probe")
	require.NoError(t, err)
	stores.verify()

	assert.Contains(t, out, "partially_pushed, 2 relation(s)")
}

func TestCompile_ProbeFailure(t *testing.T) {
	stores := &fakeStores{t: t, versions: map[string]string{}}

	out, _, err := execute(t, &RootOptions{Opener: stores.open},
		"compile", testPlan("filter_project"), "--catalog", testCatalog, "--probe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
	assert.Contains(t, out, `connection "b"`)
}
