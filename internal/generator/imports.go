package generator

import (
	"sort"
	"strings"
)

// stdlibPackages are the Python standard library modules generated code uses
var stdlibPackages = map[string]bool{
	"__future__": true,
	"datetime":   true,
	"decimal":    true,
	"typing":     true,
	"uuid":       true,
}

// importCollector gathers the imports of the generated module
type importCollector struct {
	names   map[string]map[string]bool
	modules map[string]bool
}

func newImportCollector() *importCollector {
	return &importCollector{
		names:   make(map[string]map[string]bool),
		modules: make(map[string]bool),
	}
}

// add records "from pkg import name"
func (c *importCollector) add(pkg, name string) {
	if c == nil {
		return
	}
	if c.names[pkg] == nil {
		c.names[pkg] = make(map[string]bool)
	}
	c.names[pkg][name] = true
}

// addModule records "import module"
func (c *importCollector) addModule(module string) {
	if c == nil {
		return
	}
	c.modules[module] = true
}

// globalNames returns every name the imports bind in the module namespace
func (c *importCollector) globalNames() nameSet {
	names := make(nameSet)
	for _, pkgNames := range c.names {
		for name := range pkgNames {
			names[name] = true
		}
	}
	for module := range c.modules {
		names[module] = true
	}
	return names
}

// render returns the import statements grouped into standard library and
// third party blocks separated by a blank line
func (c *importCollector) render() string {
	var future, stdlib, thirdParty []string

	for _, module := range sortedKeys(c.modules) {
		if stdlibPackages[module] {
			stdlib = append(stdlib, "import "+module)
		} else {
			thirdParty = append(thirdParty, "import "+module)
		}
	}

	for _, pkg := range sortedKeys(c.names) {
		line := "from " + pkg + " import " + strings.Join(sortedKeys(c.names[pkg]), ", ")
		switch {
		case pkg == "__future__":
			future = append(future, line)
		case stdlibPackages[pkg]:
			stdlib = append(stdlib, line)
		default:
			thirdParty = append(thirdParty, line)
		}
	}

	var groups []string
	for _, group := range [][]string{future, stdlib, thirdParty} {
		if len(group) > 0 {
			groups = append(groups, strings.Join(group, "\n"))
		}
	}
	return strings.Join(groups, "\n\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
