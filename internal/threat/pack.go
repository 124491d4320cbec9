package threat

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PackInfo summarizes a family pack for listing.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	FamilyCount int
	Err         error // set when the pack could not be loaded
}

// LoadPacks reads every .yaml/.yml file in packsDir and appends its
// families after those of base, in file-name order. Files whose base name
// starts with "_" are listed but not applied. A pack that fails to parse
// or validate is reported in its PackInfo and skipped; the other packs
// still apply. A missing directory is not an error.
//
// base is never modified.
func LoadPacks(packsDir string, base *Catalog) (*Catalog, []PackInfo, error) {
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, fmt.Errorf("read packs dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := base.clone()
	var infos []PackInfo

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(packsDir, entry.Name())
		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{Name: baseName, Enabled: enabled, Path: path, Err: err})
			continue
		}

		info := PackInfo{
			Name:        pack.Name,
			Description: pack.Description,
			Version:     pack.Version,
			Author:      pack.Author,
			Enabled:     enabled,
			Path:        path,
			FamilyCount: len(pack.Families),
		}
		if info.Name == "" {
			info.Name = baseName
		}

		if enabled {
			if err := result.add(pack.Families); err != nil {
				info.Err = fmt.Errorf("pack %s: %w", path, err)
			}
		}
		infos = append(infos, info)
	}

	return result, infos, nil
}

func loadPack(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack catalogFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}
	return &pack, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
