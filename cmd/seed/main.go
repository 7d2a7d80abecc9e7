// Command seed loads topic groups from a YAML file and can drop the page
// cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"blog/internal/app"
	"blog/internal/models"
	"blog/internal/store"
)

type groupsFile struct {
	Groups []struct {
		Title       string `yaml:"title"`
		Slug        string `yaml:"slug"`
		Description string `yaml:"description"`
	} `yaml:"groups"`
}

func loadGroups(path string) ([]models.Group, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f groupsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]models.Group, 0, len(f.Groups))
	for i, g := range f.Groups {
		if g.Slug == "" || g.Title == "" {
			return nil, fmt.Errorf("%s: group %d needs a title and a slug", path, i)
		}
		out = append(out, models.Group{Title: g.Title, Slug: g.Slug, Description: g.Description})
	}
	return out, nil
}

func seed(ctx context.Context, s store.GroupStore, groups []models.Group, log logrus.FieldLogger) error {
	for _, g := range groups {
		saved, err := s.UpsertGroup(ctx, g)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", g.Slug, err)
		}
		log.WithFields(logrus.Fields{"id": saved.ID, "slug": saved.Slug}).Info("group")
	}
	return nil
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	groupsPath := flag.String("groups", "", "YAML file with groups to create or update")
	clearCache := flag.Bool("clear-cache", false, "drop every cached page")
	flag.Parse()

	cfg, err := app.LoadConfig(*envFile)
	app.Must(err)
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if *groupsPath != "" {
		groups, err := loadGroups(*groupsPath)
		app.Must(err)
		st, err := app.OpenStore(ctx, cfg, log)
		app.Must(err)
		defer st.Close()
		app.Must(seed(ctx, st, groups, log))
	}

	if *clearCache {
		c, err := app.OpenCache(ctx, cfg, log)
		app.Must(err)
		app.Must(c.Clear(ctx))
		log.Info("page cache cleared")
	}
}
