// Package worldview models the character profile and world-setting
// block: Markdown files under a worldview directory, parsed into
// category-tagged modules and rendered into the character_profile /
// world_setting prompt slots.
package worldview

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hedaas-code/neoagent/internal/obs"
)

var log = obs.For("worldview")

// Category tags a worldview module's subject matter.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryRules      Category = "rules"
	CategoryLocations  Category = "locations"
	CategoryCharacters Category = "characters"
	CategoryEvents     Category = "events"
	CategoryItems      Category = "items"
	CategoryCulture    Category = "culture"
	CategoryTechnology Category = "technology"
)

// categoryKeywords infers a module's category from its heading text.
// Order matters: the first matching category wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryGeneral, []string{"基本", "简介", "概述", "世界", "背景", "overview", "general"}},
	{CategoryRules, []string{"规则", "法则", "限制", "物理", "魔法", "rule", "law"}},
	{CategoryLocations, []string{"地点", "场所", "位置", "环境", "地理", "location", "place"}},
	{CategoryCharacters, []string{"角色", "人物", "npc", "种族", "character"}},
	{CategoryEvents, []string{"事件", "历史", "时间", "故事", "event", "history"}},
	{CategoryItems, []string{"物品", "道具", "装备", "物体", "item"}},
	{CategoryCulture, []string{"文化", "习俗", "社会", "传统", "culture"}},
	{CategoryTechnology, []string{"科技", "技术", "工具", "发明", "technology"}},
}

func inferCategory(title string) Category {
	lower := strings.ToLower(title)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}

// Module is one section of a worldview document.
type Module struct {
	Name       string
	Category   Category
	Content    string
	SourceFile string
}

var headingPattern = regexp.MustCompile(`(?m)^#{2,3}\s+(.+)$`)

// ParseModules splits a Markdown worldview document into
// category-tagged modules at its level-2/3 headings.
func ParseModules(content, sourceFile string) []Module {
	locs := headingPattern.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []Module{{Name: "general", Category: CategoryGeneral, Content: trimmed, SourceFile: sourceFile}}
	}

	var modules []Module
	for i, loc := range locs {
		titleStart, titleEnd := loc[2], loc[3]
		bodyStart := loc[1]
		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		title := strings.TrimSpace(content[titleStart:titleEnd])
		body := strings.TrimSpace(content[bodyStart:bodyEnd])
		if body == "" {
			continue
		}
		modules = append(modules, Module{
			Name:       title,
			Category:   inferCategory(title),
			Content:    body,
			SourceFile: sourceFile,
		})
	}
	return modules
}

// Worldview is the loaded character profile and world-setting context.
type Worldview struct {
	dir     string
	modules []Module
}

// Load reads every *.md file under dir and parses it into modules.
// A missing directory yields an empty Worldview rather than an error,
// since the worldview block is optional context.
func Load(dir string) (*Worldview, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Worldview{dir: dir}, nil
		}
		return nil, fmt.Errorf("read worldview dir %s: %w", dir, err)
	}

	wv := &Worldview{dir: dir}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("failed to read worldview file, skipping")
			continue
		}
		wv.modules = append(wv.modules, ParseModules(string(raw), e.Name())...)
	}
	return wv, nil
}

// CharacterProfile renders the "characters" category modules for the
// character_profile prompt slot.
func (w *Worldview) CharacterProfile() string {
	return w.renderCategory(CategoryCharacters)
}

// WorldSetting renders every other category for the world_setting
// prompt slot, grouped by category in declaration order.
func (w *Worldview) WorldSetting() string {
	order := []Category{CategoryGeneral, CategoryRules, CategoryLocations, CategoryEvents, CategoryItems, CategoryCulture, CategoryTechnology}
	var sb strings.Builder
	for _, cat := range order {
		block := w.renderCategory(cat)
		if block == "" {
			continue
		}
		sb.WriteString(block)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func (w *Worldview) renderCategory(cat Category) string {
	var matching []Module
	for _, m := range w.modules {
		if m.Category == cat {
			matching = append(matching, m)
		}
	}
	if len(matching) == 0 {
		return ""
	}
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].Name < matching[j].Name })

	var sb strings.Builder
	for _, m := range matching {
		fmt.Fprintf(&sb, "### %s\n%s\n", m.Name, m.Content)
	}
	return strings.TrimSpace(sb.String())
}

// Modules returns every parsed module, for diagnostics/listing.
func (w *Worldview) Modules() []Module {
	out := make([]Module, len(w.modules))
	copy(out, w.modules)
	return out
}
