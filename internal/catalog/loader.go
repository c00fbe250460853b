package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// File — YAML-описание варианта workflow.
//
// Пример:
//
//	name: travaux
//	steps:
//	  - phase: 1
//	    step: 1
//	    title: Expression du besoin
//	    role: technical_service
//	    estimated_days: 3
//	    max_days: 5
//	  - phase: 1
//	    step: 2
//	    title: Visa
//	    role: state_control
//	    on_reject: {phase: 1, step: 1}
type File struct {
	Name  string                  `yaml:"name"`
	Steps []domain.StepDefinition `yaml:"steps"`
}

// Parse разбирает YAML и строит каталог. Неизвестные поля считаются ошибкой.
func Parse(data []byte) (*Catalog, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	return New(f.Steps)
}

// LoadFile читает каталог из YAML-файла.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Load возвращает каталог из файла, если путь задан, иначе эталонный.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Marshal сериализует шаги каталога в YAML (формат File).
func Marshal(name string, c *Catalog) ([]byte, error) {
	return yaml.Marshal(File{Name: name, Steps: c.Steps()})
}
