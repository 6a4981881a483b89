package migrate

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"0002_add_contact_fields.up.sql":   {Data: []byte("ALTER TABLE projects ADD COLUMN contact_name TEXT;")},
		"0002_add_contact_fields.down.sql": {Data: []byte("ALTER TABLE projects DROP COLUMN contact_name;")},
		"0001_init.up.sql":                 {Data: []byte("CREATE TABLE projects (id UUID);")},
		"0001_init.down.sql":               {Data: []byte("DROP TABLE projects;")},
		"README.md":                        {Data: []byte("not a migration")},
		"seed.sql":                         {Data: []byte("INSERT INTO projects VALUES (NULL);")},
	}
}

func TestLoad(t *testing.T) {
	migrations, err := Load(testFS())
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, "DROP TABLE projects;", migrations[0].Down)
	assert.Equal(t, "0002_add_contact_fields", migrations[1].Label())
}

func TestLoad_Embedded(t *testing.T) {
	migrations, err := Load(Embedded())
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.NotEmpty(t, m.Up, m.Label())
		assert.NotEmpty(t, m.Down, m.Label())

		if i > 0 {
			assert.Greater(t, m.Version, migrations[i-1].Version)
		}
	}
}

func TestLoad_MissingUp(t *testing.T) {
	fsys := fstest.MapFS{
		"0003_orphan.down.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := Load(fsys)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	fsys := testFS()

	migrations, err := Load(fsys)
	require.NoError(t, err)

	tests := []struct {
		name    string
		file    string
		want    int64
		wantErr error
	}{
		{name: "Versioned up script", file: "0002_add_contact_fields.up.sql", want: 2},
		{name: "Leading dot slash", file: "./0001_init.up.sql", want: 1},
		{name: "Parent traversal", file: "../../etc/passwd", wantErr: ErrInvalidPath},
		{name: "Hidden traversal", file: "sub/../../0001_init.up.sql", wantErr: ErrInvalidPath},
		{name: "Absolute path", file: "/etc/passwd", wantErr: ErrInvalidPath},
		{name: "Empty", file: "", wantErr: ErrInvalidPath},
		{name: "Missing file", file: "0009_nothing.up.sql", wantErr: ErrNotFound},
		{name: "Down script", file: "0001_init.down.sql", wantErr: ErrUnsupported},
		{name: "Unversioned script", file: "seed.sql", wantErr: ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(fsys, migrations, tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Version)
		})
	}
}

func TestPendingAndRollbackOrder(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a"},
		{Version: 2, Name: "b"},
		{Version: 3, Name: "c"},
	}

	applied := map[int64]bool{1: true, 2: true}

	got := pending(migrations, applied)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Version)

	back := rollbackOrder(migrations, applied, 5)
	require.Len(t, back, 2)
	assert.Equal(t, int64(2), back[0].Version)
	assert.Equal(t, int64(1), back[1].Version)

	assert.Len(t, rollbackOrder(migrations, applied, 1), 1)
	assert.Empty(t, pending(migrations, map[int64]bool{1: true, 2: true, 3: true}))
}

func TestStatuses(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	migrations := []Migration{{Version: 1, Name: "init"}, {Version: 2, Name: "contacts"}}

	got := statuses(migrations, map[int64]time.Time{1: at})
	require.Len(t, got, 2)

	require.NotNil(t, got[0].AppliedAt)
	assert.Equal(t, at, *got[0].AppliedAt)
	assert.Nil(t, got[1].AppliedAt)
}
