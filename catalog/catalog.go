package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
	"gopkg.in/yaml.v3"
)

type Chapter struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type Subject struct {
	Name     string    `json:"name"`
	Chapters []Chapter `json:"chapters"`
}

// Catalog maps subjects to their ordered chapters and bank files.
type Catalog struct {
	Subjects []Subject `json:"subjects"`
	baseDir  string
}

// The document may use either English keys or the localized keys of the
// original subjects file.
type rawChapter struct {
	Name      string `yaml:"name"`
	NameLocal string `yaml:"नाम"`
	Path      string `yaml:"path"`
	CSVPath   string `yaml:"csv_path"`
}

type rawSubject struct {
	Name          string       `yaml:"name"`
	NameLocal     string       `yaml:"नाम"`
	Chapters      []rawChapter `yaml:"chapters"`
	ChaptersLocal []rawChapter `yaml:"अध्याय"`
}

type rawCatalog struct {
	Subjects      []rawSubject `yaml:"subjects"`
	SubjectsLocal []rawSubject `yaml:"विषय"`
}

// Load reads a catalog file. Relative bank paths resolve against its directory.
func Load(path string) (*Catalog, error) {
	utils.LogStartup("Loading catalog from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	utils.LogStartup("Catalog loaded: %d subjects", len(c.Subjects))
	return c, nil
}

// Parse decodes a YAML catalog document. JSON documents parse as YAML flow style.
func Parse(data []byte, baseDir string) (*Catalog, error) {
	var raw rawCatalog
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", models.ErrInvalidConfig, err)
	}

	c := &Catalog{baseDir: baseDir}
	for i, rs := range append(raw.Subjects, raw.SubjectsLocal...) {
		s := Subject{Name: firstNonEmpty(rs.Name, rs.NameLocal)}
		if s.Name == "" {
			return nil, fmt.Errorf("%w: catalog subject %d has no name", models.ErrInvalidConfig, i+1)
		}
		for j, rc := range append(rs.Chapters, rs.ChaptersLocal...) {
			ch := Chapter{
				Name: firstNonEmpty(rc.Name, rc.NameLocal),
				Path: firstNonEmpty(rc.Path, rc.CSVPath),
			}
			if ch.Path == "" {
				return nil, fmt.Errorf("%w: catalog chapter %d of %q has no path", models.ErrInvalidConfig, j+1, s.Name)
			}
			if ch.Name == "" {
				ch.Name = ch.Path
			}
			s.Chapters = append(s.Chapters, ch)
		}
		c.Subjects = append(c.Subjects, s)
	}
	return c, nil
}

// Resolve returns the bank locator for a subject and chapter. chapter may be the
// chapter's display name or its path.
func (c *Catalog) Resolve(subject, chapter string) (string, error) {
	for _, s := range c.Subjects {
		if s.Name != subject {
			continue
		}
		for _, ch := range s.Chapters {
			if ch.Name == chapter || ch.Path == chapter {
				return c.locate(ch.Path), nil
			}
		}
		return "", fmt.Errorf("%w: chapter %q in subject %q", models.ErrNotFound, chapter, subject)
	}
	return "", fmt.Errorf("%w: subject %q", models.ErrNotFound, subject)
}

// ChapterName maps a chapter path back to its display name.
func (c *Catalog) ChapterName(subject, chapter string) string {
	for _, s := range c.Subjects {
		if s.Name != subject {
			continue
		}
		for _, ch := range s.Chapters {
			if ch.Name == chapter || ch.Path == chapter {
				return ch.Name
			}
		}
	}
	return chapter
}

func (c *Catalog) locate(path string) string {
	if filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, filepath.FromSlash(path))
}

// Open reads a bank source.
func Open(locator string) (string, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return "", fmt.Errorf("open bank %s: %w", locator, err)
	}
	return string(data), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
