package pushext

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"howett.net/plist"
)

// Object kinds and product types used by the installer.
const (
	isaProject            = "PBXProject"
	isaNativeTarget       = "PBXNativeTarget"
	isaFileReference      = "PBXFileReference"
	isaBuildFile          = "PBXBuildFile"
	isaGroup              = "PBXGroup"
	isaSourcesPhase       = "PBXSourcesBuildPhase"
	isaResourcesPhase     = "PBXResourcesBuildPhase"
	isaFrameworksPhase    = "PBXFrameworksBuildPhase"
	isaConfigurationList  = "XCConfigurationList"
	isaBuildConfiguration = "XCBuildConfiguration"

	productTypeAppExtension = "com.apple.product-type.app-extension"
)

// Object is a single node in the project descriptor graph. The "isa" field
// names the node kind (PBXNativeTarget, XCBuildConfiguration, ...).
type Object map[string]interface{}

// Target identifies a build target node in the graph.
type Target struct {
	ID   string
	Name string
}

// Project is an in-memory project.pbxproj object graph: nodes keyed by
// 96-bit hex identifiers, plus the document-level fields (archiveVersion,
// objectVersion, rootObject) preserved from the original file.
//
// All mutation methods are additive. Nodes that do not belong to the
// extension being installed are never rewritten or removed.
type Project struct {
	root    map[string]interface{}
	objects map[string]interface{}
	path    string
}

// LoadProject reads and parses a project.pbxproj file. The descriptor text
// is an OpenStep-format property list.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	proj, err := ParseProject(data)
	if err != nil {
		return nil, err
	}
	proj.path = path
	return proj, nil
}

// ParseProject parses project descriptor bytes into a Project graph.
func ParseProject(data []byte) (*Project, error) {
	var root map[string]interface{}
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}
	objects, ok := root["objects"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("project file has no objects section")
	}
	return &Project{root: root, objects: objects}, nil
}

// Save serializes the graph and overwrites the file it was loaded from.
func (p *Project) Save() error {
	return p.SaveTo(p.path)
}

// SaveTo serializes the graph as OpenStep plist text to path.
func (p *Project) SaveTo(path string) error {
	data, err := plist.MarshalIndent(p.root, plist.OpenStepFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to serialize project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// Object returns the node with the given identifier.
func (p *Project) Object(id string) (Object, bool) {
	obj, ok := p.objects[id].(map[string]interface{})
	return Object(obj), ok
}

func (p *Project) add(id string, obj Object) {
	p.objects[id] = map[string]interface{}(obj)
}

// rootProject returns the PBXProject node and its identifier.
func (p *Project) rootProject() (string, Object) {
	if id, ok := p.root["rootObject"].(string); ok {
		if obj, ok := p.Object(id); ok && obj["isa"] == isaProject {
			return id, obj
		}
	}
	// Some generators omit rootObject; fall back to scanning.
	var ids []string
	for id := range p.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if obj, ok := p.Object(id); ok && obj["isa"] == isaProject {
			return id, obj
		}
	}
	return "", nil
}

// Targets returns every target registered on the root project, in project
// order. Targets referenced but missing from the object table are skipped.
func (p *Project) Targets() []Target {
	_, proj := p.rootProject()
	if proj == nil {
		return nil
	}
	var targets []Target
	for _, raw := range toSlice(proj["targets"]) {
		id, ok := raw.(string)
		if !ok {
			continue
		}
		obj, ok := p.Object(id)
		if !ok {
			continue
		}
		name, _ := obj["name"].(string)
		targets = append(targets, Target{ID: id, Name: name})
	}
	return targets
}

// FirstTarget returns the first target registered on the root project,
// conventionally the application target.
func (p *Project) FirstTarget() (Target, bool) {
	targets := p.Targets()
	if len(targets) == 0 {
		return Target{}, false
	}
	return targets[0], true
}

// AddAppExtensionTarget registers a new application-extension target: a
// product file reference, Debug and Release build configurations carrying
// the product name and bundle identifier, a configuration list, and the
// target node itself, appended to the root project's target list. Existing
// targets with the same name are not detected; every call adds a fresh
// registration.
func (p *Project) AddAppExtensionTarget(name, bundleID string) Target {
	productRef := newID()
	p.add(productRef, Object{
		"isa":              isaFileReference,
		"explicitFileType": "wrapper.app-extension",
		"includeInIndex":   0,
		"path":             name + ".appex",
		"sourceTree":       "BUILT_PRODUCTS_DIR",
	})

	configs := make([]interface{}, 0, 2)
	for _, configName := range []string{"Debug", "Release"} {
		configID := newID()
		p.add(configID, Object{
			"isa": isaBuildConfiguration,
			"buildSettings": map[string]interface{}{
				"PRODUCT_NAME":              name,
				"PRODUCT_BUNDLE_IDENTIFIER": bundleID,
			},
			"name": configName,
		})
		configs = append(configs, configID)
	}

	listID := newID()
	p.add(listID, Object{
		"isa":                           isaConfigurationList,
		"buildConfigurations":           configs,
		"defaultConfigurationIsVisible": 0,
		"defaultConfigurationName":      "Release",
	})

	targetID := newID()
	p.add(targetID, Object{
		"isa":                    isaNativeTarget,
		"buildConfigurationList": listID,
		"buildPhases":            []interface{}{},
		"buildRules":             []interface{}{},
		"dependencies":           []interface{}{},
		"name":                   name,
		"productName":            name,
		"productReference":       productRef,
		"productType":            productTypeAppExtension,
	})

	if _, proj := p.rootProject(); proj != nil {
		proj["targets"] = append(toSlice(proj["targets"]), targetID)
		p.addToProductsGroup(proj, productRef)
	}

	return Target{ID: targetID, Name: name}
}

// addToProductsGroup files the product reference under the project's
// products group so the .appex shows up alongside the app product. Missing
// group is not an error; the reference is simply left unfiled.
func (p *Project) addToProductsGroup(proj Object, fileRef string) {
	groupID, ok := proj["productRefGroup"].(string)
	if !ok {
		return
	}
	group, ok := p.Object(groupID)
	if !ok || group["isa"] != isaGroup {
		return
	}
	group["children"] = append(toSlice(group["children"]), fileRef)
}

// AddSourcesBuildPhase attaches a compile-sources phase to the target. Each
// source path gains a file reference and a build-file entry in the phase.
func (p *Project) AddSourcesBuildPhase(target Target, sources []string) string {
	files := make([]interface{}, 0, len(sources))
	for _, src := range sources {
		fileRef := newID()
		p.add(fileRef, Object{
			"isa":               isaFileReference,
			"lastKnownFileType": fileTypeFor(src),
			"path":              src,
			"sourceTree":        "<group>",
		})
		buildFile := newID()
		p.add(buildFile, Object{
			"isa":     isaBuildFile,
			"fileRef": fileRef,
		})
		files = append(files, buildFile)
	}
	return p.addBuildPhase(target, isaSourcesPhase, files)
}

// AddResourcesBuildPhase attaches an empty copy-resources phase.
func (p *Project) AddResourcesBuildPhase(target Target) string {
	return p.addBuildPhase(target, isaResourcesPhase, nil)
}

// AddFrameworksBuildPhase attaches an empty link-frameworks phase.
func (p *Project) AddFrameworksBuildPhase(target Target) string {
	return p.addBuildPhase(target, isaFrameworksPhase, nil)
}

func (p *Project) addBuildPhase(target Target, isa string, files []interface{}) string {
	if files == nil {
		files = []interface{}{}
	}
	phaseID := newID()
	p.add(phaseID, Object{
		"isa":                                isa,
		"buildActionMask":                    2147483647,
		"files":                              files,
		"runOnlyForDeploymentPostprocessing": 0,
	})
	if obj, ok := p.Object(target.ID); ok {
		obj["buildPhases"] = append(toSlice(obj["buildPhases"]), phaseID)
	}
	return phaseID
}

// BuildConfigurationsForProduct returns the identifiers of every build
// configuration whose PRODUCT_NAME equals name. Some descriptor writers
// store the value with literal surrounding quotes; both spellings match.
func (p *Project) BuildConfigurationsForProduct(name string) []string {
	var ids []string
	for id, raw := range p.objects {
		obj, ok := raw.(map[string]interface{})
		if !ok || obj["isa"] != isaBuildConfiguration {
			continue
		}
		settings, ok := obj["buildSettings"].(map[string]interface{})
		if !ok {
			continue
		}
		product, _ := settings["PRODUCT_NAME"].(string)
		if product == name || product == `"`+name+`"` {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SetBuildSetting sets one build-settings field on a configuration node.
// Unknown identifiers and non-configuration nodes are ignored.
func (p *Project) SetBuildSetting(configID, key string, value interface{}) {
	obj, ok := p.Object(configID)
	if !ok || obj["isa"] != isaBuildConfiguration {
		return
	}
	settings, ok := obj["buildSettings"].(map[string]interface{})
	if !ok {
		settings = map[string]interface{}{}
		obj["buildSettings"] = settings
	}
	settings[key] = value
}

// BuildSetting reads one build-settings field from a configuration node.
func (p *Project) BuildSetting(configID, key string) (interface{}, bool) {
	obj, ok := p.Object(configID)
	if !ok {
		return nil, false
	}
	settings, ok := obj["buildSettings"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := settings[key]
	return v, ok
}

// SetDevelopmentTeam records the team as a target attribute on the root
// project for the given target identifier.
func (p *Project) SetDevelopmentTeam(targetID, team string) {
	_, proj := p.rootProject()
	if proj == nil {
		return
	}
	attrs, ok := proj["attributes"].(map[string]interface{})
	if !ok {
		attrs = map[string]interface{}{}
		proj["attributes"] = attrs
	}
	targetAttrs, ok := attrs["TargetAttributes"].(map[string]interface{})
	if !ok {
		targetAttrs = map[string]interface{}{}
		attrs["TargetAttributes"] = targetAttrs
	}
	entry, ok := targetAttrs[targetID].(map[string]interface{})
	if !ok {
		entry = map[string]interface{}{}
		targetAttrs[targetID] = entry
	}
	entry["DevelopmentTeam"] = team
}

// DevelopmentTeam returns the team attribute recorded for a target, if any.
func (p *Project) DevelopmentTeam(targetID string) (string, bool) {
	_, proj := p.rootProject()
	if proj == nil {
		return "", false
	}
	attrs, ok := proj["attributes"].(map[string]interface{})
	if !ok {
		return "", false
	}
	targetAttrs, ok := attrs["TargetAttributes"].(map[string]interface{})
	if !ok {
		return "", false
	}
	entry, ok := targetAttrs[targetID].(map[string]interface{})
	if !ok {
		return "", false
	}
	team, ok := entry["DevelopmentTeam"].(string)
	return team, ok
}

// newID generates a 96-bit object identifier in the descriptor's uppercase
// hex convention.
func newID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

func toSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func fileTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".m":
		return "sourcecode.c.objc"
	case ".h":
		return "sourcecode.c.h"
	case ".swift":
		return "sourcecode.swift"
	default:
		return "text"
	}
}
