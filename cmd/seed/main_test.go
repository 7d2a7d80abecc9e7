package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/store/memory"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "groups.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestSeedIsIdempotent(t *testing.T) {
	path := writeFile(t, `
groups:
  - title: Cats
    slug: cats
    description: All about cats
  - title: Dogs
    slug: dogs
`)
	groups, err := loadGroups(path)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	s := memory.New()
	log, _ := test.NewNullLogger()
	ctx := context.Background()
	require.NoError(t, seed(ctx, s, groups, log))

	groups[0].Description = "Updated"
	require.NoError(t, seed(ctx, s, groups, log))

	all, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	cats, err := s.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, "Updated", cats.Description)
}

func TestLoadGroupsRejectsMissingSlug(t *testing.T) {
	_, err := loadGroups(writeFile(t, "groups:\n  - title: Nameless\n"))
	assert.Error(t, err)
}
