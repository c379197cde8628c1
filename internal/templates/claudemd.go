package templates

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ProjectTypeAuto は検出結果をそのまま使う指定
const ProjectTypeAuto = "auto"

const (
	defaultProjectType        = "generic"
	defaultProjectDescription = "A software project"
)

//go:embed claude.md.tmpl
var claudeMDTemplate string

var claudeMD = template.Must(template.New("CLAUDE.md").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(claudeMDTemplate))

// techStacks は種別ごとの技術スタック
var techStacks = map[string][]string{
	"node":   {"Node.js", "JavaScript/TypeScript"},
	"python": {"Python"},
	"rust":   {"Rust"},
	"java":   {"Java", "Maven"},
}

// ProjectInfo はディレクトリから検出したプロジェクト情報
type ProjectInfo struct {
	Name        string
	Type        string
	Description string
	TechStack   []string
}

type packageJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DetectProject はディレクトリの内容からプロジェクト情報を検出する
// 判定順: package.json, *.py, Cargo.toml, pom.xml
func DetectProject(dir string) (*ProjectInfo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの解決に失敗: %w", err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの読み込みに失敗: %w", err)
	}

	info := &ProjectInfo{
		Name:        filepath.Base(abs),
		Type:        defaultProjectType,
		Description: defaultProjectDescription,
		TechStack:   []string{},
	}

	has := func(name string) bool {
		_, err := os.Stat(filepath.Join(abs, name))
		return err == nil
	}

	switch {
	case has("package.json"):
		// 壊れたpackage.jsonは generic のまま扱う
		data, err := os.ReadFile(filepath.Join(abs, "package.json"))
		if err != nil {
			return info, nil
		}
		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err != nil {
			return info, nil
		}
		if pkg.Name != "" {
			info.Name = pkg.Name
		}
		if pkg.Description != "" {
			info.Description = pkg.Description
		}
		info.setType("node")
	case hasPythonFile(entries):
		info.setType("python")
	case has("Cargo.toml"):
		info.setType("rust")
	case has("pom.xml"):
		info.setType("java")
	}

	return info, nil
}

func hasPythonFile(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".py") {
			return true
		}
	}
	return false
}

func (p *ProjectInfo) setType(projectType string) {
	p.Type = projectType
	if stack, ok := techStacks[projectType]; ok {
		p.TechStack = append([]string(nil), stack...)
	}
}

// Override は明示的な種別で検出結果を上書きする（空と auto は無視）
func (p *ProjectInfo) Override(projectType string) {
	if projectType == "" || projectType == ProjectTypeAuto {
		return
	}
	p.setType(projectType)
}

// RenderClaudeMD はプロジェクト情報からCLAUDE.mdを作成する
func RenderClaudeMD(info *ProjectInfo) (string, error) {
	var buf bytes.Buffer
	if err := claudeMD.Execute(&buf, info); err != nil {
		return "", fmt.Errorf("CLAUDE.mdの生成に失敗: %w", err)
	}
	return buf.String(), nil
}

// GenerateClaudeMD はディレクトリを検出してCLAUDE.mdを作成する
func GenerateClaudeMD(dir, projectType string) (string, error) {
	info, err := DetectProject(dir)
	if err != nil {
		return "", err
	}
	info.Override(projectType)
	return RenderClaudeMD(info)
}
