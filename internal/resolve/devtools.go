// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"

	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/fspath"
)

// resolveDevTools returns the package's devtools web root, or nil when the
// manifest declares none.
func resolveDevTools(_ context.Context, name string, rev *registry.PackageRevision, _ Options) (*descriptor.ModuleDescriptor, error) {
	root := rev.Config.DevToolsWebpageRoot()
	if root == "" {
		return nil, nil
	}
	d := descriptor.NewDevTools(&descriptor.DevTools{
		PackageName: name,
		PackageRoot: string(rev.Path),
		WebpageRoot: string(fspath.JoinStr(rev.Path, root)),
	})
	return &d, nil
}
