// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/invowk/modhost/pkg/unitmod"
)

type Id int

const (
	DiscoveryFailedId Id = iota + 1
	DescriptorInvalidId
	DependencyUnresolvedId
	NamespaceSetupFailedId
	InstantiationFailedId
	TransformationFaultId
	ConfigLoadFailedId
	SearchPathMissingId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const docBase = "https://github.com/invowk/modhost/blob/main/docs/"

var (
	render = glamour.Render

	discoveryFailedIssue = &Issue{
		id: DiscoveryFailedId,
		mdMsg: `
# A unit candidate could not be read!

A directory or archive in a search path has no readable descriptor.
Other candidates are unaffected.

## Things you can try:
- Make sure the unit root contains a ` + "`unit.json`" + ` file
- Check that the archive is a valid zip file
- Remove stray files from the search path, or list only unit roots in it`,
		docLinks: []HttpLink{docBase + "descriptor.md"},
	}

	descriptorInvalidIssue = &Issue{
		id: DescriptorInvalidId,
		mdMsg: `
# Invalid unit descriptor!

The unit was excluded because its name is malformed or it declares no entrypoint.

## Requirements:
- **id** starts with a letter and is at least two characters of letters, digits, ` + "`-`" + ` or ` + "`_`" + `
- **entrypoint** names the class implementing the unit capability

## Example descriptor:
~~~json
{
  "id": "greeter",
  "version": "1.2.0",
  "entrypoint": "greeter.Entry",
  "depends": {"core": ">=1.0"}
}
~~~`,
		docLinks: []HttpLink{docBase + "descriptor.md"},
	}

	dependencyUnresolvedIssue = &Issue{
		id: DependencyUnresolvedId,
		mdMsg: `
# Dependencies could not be resolved!

The unit depends on a unit that is missing, failed, or part of a dependency cycle.
Units that depend on it are excluded too.

## Things you can try:
- Explain the decision for the unit:
~~~
$ modhost explain <unit>
~~~

- Add the missing unit to a search path
- Break the cycle by removing one of the dependencies`,
		docLinks: []HttpLink{docBase + "resolution.md"},
		extLinks: []HttpLink{"https://github.com/Masterminds/semver#checking-version-constraints"},
	}

	namespaceSetupFailedIssue = &Issue{
		id: NamespaceSetupFailedId,
		mdMsg: `
# Namespace setup failed!

The unit's code namespace could not be created, usually because a dependency
was unloaded while the batch was running.

## Things you can try:
- Retry the load
- Check that the unit's dependencies are still present`,
		docLinks: []HttpLink{docBase + "namespaces.md"},
	}

	instantiationFailedIssue = &Issue{
		id: InstantiationFailedId,
		mdMsg: `
# Unit could not be instantiated!

The entrypoint class was missing, did not implement the unit capability,
had no registered factory, or its factory failed.

## Things you can try:
- Check the ` + "`entrypoint`" + ` field names a class shipped by the unit
- Make sure the entrypoint declares the ` + "`modhost.api.Unit`" + ` interface
- Run with ` + "`--log-level debug`" + ` to see the factory error`,
		docLinks: []HttpLink{docBase + "lifecycle.md"},
	}

	transformationFaultIssue = &Issue{
		id: TransformationFaultId,
		mdMsg: `
# Transformation fault!

A class transformer failed while rewriting a class. This stops the whole batch:
units instantiated in this batch were torn down again.

## Things you can try:
- Find the failing transformer in the error above and check its target class
- Temporarily disable the unit contributing it:
~~~cue
disabled: ["<unit>"]
~~~`,
		docLinks: []HttpLink{docBase + "transformers.md"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the modhost configuration file.

## Configuration file locations:
- Linux: ~/.config/modhost/config.cue
- macOS: ~/Library/Application Support/modhost/config.cue
- Windows: %APPDATA%\modhost\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ modhost config init
~~~

- Check the configuration syntax
- Unset ` + "`MODHOST_*`" + ` environment variables that override it

## Example configuration:
~~~cue
search_paths: ["/opt/modhost/units"]
disabled: ["legacy"]
log_level: "info"
watch: debounce: "500ms"
~~~`,
		docLinks: []HttpLink{docBase + "configuration.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	searchPathMissingIssue = &Issue{
		id: SearchPathMissingId,
		mdMsg: `
# Search path not found!

A configured search path does not exist or is not a directory.

## Things you can try:
- Create the directory
- Pass search paths explicitly:
~~~
$ modhost load --path ./units
~~~`,
		docLinks: []HttpLink{docBase + "configuration.md"},
	}

	issues = map[Id]*Issue{
		discoveryFailedIssue.Id():      discoveryFailedIssue,
		descriptorInvalidIssue.Id():    descriptorInvalidIssue,
		dependencyUnresolvedIssue.Id(): dependencyUnresolvedIssue,
		namespaceSetupFailedIssue.Id(): namespaceSetupFailedIssue,
		instantiationFailedIssue.Id():  instantiationFailedIssue,
		transformationFaultIssue.Id():  transformationFaultIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		searchPathMissingIssue.Id():    searchPathMissingIssue,
	}

	faultIssues = map[unitmod.FaultKind]Id{
		unitmod.DiscoveryFault:      DiscoveryFailedId,
		unitmod.DescriptorFault:     DescriptorInvalidId,
		unitmod.DependencyFault:     DependencyUnresolvedId,
		unitmod.NamespaceFault:      NamespaceSetupFailedId,
		unitmod.InstantiationFault:  InstantiationFailedId,
		unitmod.TransformationFault: TransformationFaultId,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	vals := maps.Values(issues)
	slices.SortFunc(vals, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return vals
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForFault returns the issue explaining a fault kind, or nil for FaultNone.
func ForFault(kind unitmod.FaultKind) *Issue {
	id, ok := faultIssues[kind]
	if !ok {
		return nil
	}
	return issues[id]
}
