/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/datastore/filestore"
	"github.com/suparena/objectstore/errors"
)

type Player struct {
	ID    int64
	Name  string
	Level int64
	Tags  []string
}

func (p *Player) PrimaryKey() int64 { return p.ID }

var playerMapper = filestore.MapperFuncs[*Player]{
	DecodeFunc: func(rec filestore.Record) (*Player, bool, error) {
		if !rec.HasID {
			return nil, false, nil
		}
		level, err := rec.IntAttr("level", 1)
		if err != nil {
			return nil, false, err
		}
		name, _ := rec.Attr("name")
		p := &Player{ID: rec.ID, Name: name, Level: level}
		for _, tag := range rec.ChildrenNamed("tag") {
			p.Tags = append(p.Tags, tag.Text)
		}
		return p, true, nil
	},
	EncodeFunc: func(p *Player) (filestore.Record, error) {
		rec := filestore.NewRecord(p).
			Set("name", p.Name).
			Set("level", strconv.FormatInt(p.Level, 10))
		for _, tag := range p.Tags {
			rec.Children = append(rec.Children, filestore.Element{Name: "tag", Text: tag})
		}
		return rec, nil
	},
}

func codecs() []filestore.Codec {
	return []filestore.Codec{filestore.XMLCodec{}, filestore.YAMLCodec{}}
}

func TestDriverRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, codec := range codecs() {
		t.Run(codec.Format(), func(t *testing.T) {
			root := filestore.NewRoot(t.TempDir(), codec)
			driver := filestore.NewDriver[*Player](root.FileFor("player"), codec, playerMapper)

			players := []*Player{
				{ID: 30, Name: "Cara", Level: 3},
				{ID: 10, Name: "Ann", Level: 1, Tags: []string{"ranger", "elf"}},
				{ID: 20, Name: "Bob", Level: 2},
			}
			require.NoError(t, driver.SaveAll(ctx, players))

			all, err := driver.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []int64{10, 20, 30}, []int64{all[0].ID, all[1].ID, all[2].ID})
			assert.Equal(t, []string{"ranger", "elf"}, all[0].Tags)
			assert.Equal(t, "Bob", all[1].Name)
			assert.Equal(t, int64(3), all[2].Level)
		})
	}
}

func TestDriverMissingFile(t *testing.T) {
	ctx := context.Background()
	driver := filestore.NewDriver[*Player](filepath.Join(t.TempDir(), "none.xml"), filestore.XMLCodec{}, playerMapper)

	all, err := driver.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, ok, err := driver.GetByPrimaryKey(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriverMalformedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "player.xml")
	require.NoError(t, os.WriteFile(path, []byte("<objects><object id=\"1\">"), 0o600))

	driver := filestore.NewDriver[*Player](path, filestore.XMLCodec{}, playerMapper)
	_, err := driver.GetAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedStorage(err))
}

func TestDriverBadAttribute(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "player.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<objects><object id="1" level="high"/></objects>`), 0o600))

	driver := filestore.NewDriver[*Player](path, filestore.XMLCodec{}, playerMapper)
	_, err := driver.GetAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedStorage(err))
	assert.True(t, errors.IsValidationError(err))
}

func TestDriverWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "player.yaml")
	driver := filestore.NewDriver[*Player](path, filestore.YAMLCodec{}, playerMapper)

	require.NoError(t, driver.Create(ctx, &Player{ID: 2, Name: "two"}))
	require.NoError(t, driver.Create(ctx, &Player{ID: 1, Name: "one"}))
	require.NoError(t, driver.Update(ctx, &Player{ID: 2, Name: "TWO"}))

	p, ok, err := driver.GetByPrimaryKey(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TWO", p.Name)

	require.NoError(t, driver.Delete(ctx, 1))
	require.NoError(t, driver.Delete(ctx, 99))

	all, err := driver.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestXMLRecordsWithoutKey(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<objects>
  <object id="5" name="keyed"/>
  <object name="no key"/>
  <object id="-1" name="negative"/>
  <object id="abc" name="garbage"/>
  <other id="9"/>
</objects>`

	records, err := filestore.XMLCodec{}.Decode(bytes.NewBufferString(doc))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.True(t, records[0].HasID)
	assert.Equal(t, int64(5), records[0].ID)
	for _, rec := range records[1:] {
		assert.False(t, rec.HasID, rec.Attributes["name"])
	}

	path := filepath.Join(t.TempDir(), "player.xml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	driver := filestore.NewDriver[*Player](path, filestore.XMLCodec{}, playerMapper)
	all, err := driver.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "records without a key are skipped by the mapper")
}

func TestXMLEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	rec := filestore.Record{ID: 7, HasID: true, Attributes: map[string]string{"name": "x", "id": "ignored"}}
	require.NoError(t, filestore.XMLCodec{}.Encode(&buf, []filestore.Record{rec}))

	out := buf.String()
	assert.Contains(t, out, `<objects>`)
	assert.Contains(t, out, `<object id="7" name="x">`)
	assert.NotContains(t, out, "ignored")
}

func TestYAMLEmptyDocument(t *testing.T) {
	records, err := filestore.YAMLCodec{}.Decode(bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSortRecords(t *testing.T) {
	records := []filestore.Record{
		{Attributes: map[string]string{"n": "a"}},
		{ID: 3, HasID: true},
		{Attributes: map[string]string{"n": "b"}},
		{ID: 1, HasID: true},
	}
	filestore.SortRecords(records)

	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, int64(3), records[1].ID)
	assert.Equal(t, "a", records[2].Attributes["n"])
	assert.Equal(t, "b", records[3].Attributes["n"])
}

func TestCodecFor(t *testing.T) {
	c, err := filestore.CodecFor("YAML")
	require.NoError(t, err)
	assert.Equal(t, filestore.FormatYAML, c.Format())

	_, err = filestore.CodecFor("json")
	assert.True(t, errors.IsConfigurationError(err))
}

func TestConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	t.Setenv("OBJECTS_FILE_ROOT", dir)
	t.Setenv("OBJECTS_FILE_FORMAT", "yaml")

	cfg, err := filestore.LoadConfig()
	require.NoError(t, err)

	root, err := cfg.Open()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "player.yaml"), root.FileFor("player"))
	assert.DirExists(t, dir)

	_, err = filestore.Config{Root: dir, Format: "csv"}.Open()
	assert.True(t, errors.IsConfigurationError(err))
}

func TestAttachWithoutCacheSkipsPreload(t *testing.T) {
	ctx := context.Background()
	root := filestore.NewRoot(t.TempDir(), filestore.XMLCodec{})
	require.NoError(t, os.WriteFile(root.FileFor("player"), []byte("<objects><object id=\"1\">"), 0o600))

	src := objectstore.NewSource()
	m, _, err := filestore.Attach[*Player](src, root, playerMapper, objectstore.WithClassName("player"))
	require.NoError(t, err)

	require.NoError(t, src.Start(ctx))
	assert.Nil(t, m.Cache())

	_, err = m.LoadAll(ctx)
	assert.True(t, errors.IsMalformedStorage(err))
}

func TestAttachPreloadsOnStart(t *testing.T) {
	ctx := context.Background()
	root := filestore.NewRoot(t.TempDir(), filestore.XMLCodec{})
	seed := filestore.NewDriver[*Player](root.FileFor("player"), root.Codec(), playerMapper)
	require.NoError(t, seed.SaveAll(ctx, []*Player{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}}))

	src := objectstore.NewSource()
	m, driver, err := filestore.Attach[*Player](src, root, playerMapper,
		objectstore.WithClassName("player"), objectstore.WithCache(true))
	require.NoError(t, err)
	assert.Equal(t, root.FileFor("player"), driver.Path())

	require.NoError(t, src.Start(ctx))
	assert.Equal(t, 2, m.Cache().Len())

	// Served from the cache, no driver-level fetch.
	p, ok, err := objectstore.Load[*Player](ctx, src, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", p.Name)
	assert.Equal(t, int64(0), src.LoadRequests())

	require.NoError(t, objectstore.Create(ctx, src, &Player{ID: 3, Name: "three"}))
	all, err := driver.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	related, err := m.LoadRelation(ctx, "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, related)

	require.NoError(t, src.Close())
}
