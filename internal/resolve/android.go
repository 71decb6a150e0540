// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"

	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"
)

var gradleBuildFiles = []string{"build.gradle", "build.gradle.kts"}

// resolveAndroid keeps the Gradle projects that have a build file and the
// declared Gradle plugins, along with the legacy package classes in those
// projects' sources. It returns nil when neither is left.
func resolveAndroid(_ context.Context, name string, rev *registry.PackageRevision, _ Options) (*descriptor.ModuleDescriptor, error) {
	cfg := rev.Config

	var (
		projects []descriptor.AndroidProject
		packages []string
	)
	for _, p := range cfg.AndroidProjects(types.PackageName(name)) {
		sourceDir := fspath.JoinStr(rev.Path, p.Path)
		if !hasGradleBuild(sourceDir) {
			continue
		}

		project := descriptor.AndroidProject{
			Name:      p.Name,
			SourceDir: string(sourceDir),
			Modules:   nonNil(p.Modules),
		}
		if p.Publication != nil {
			project.Publication = &descriptor.AndroidPublication{
				GroupID:    p.Publication.GroupID,
				ArtifactID: p.Publication.ArtifactID,
				Version:    p.Publication.Version,
				Repository: p.Publication.Repository,
			}
		}
		for _, aar := range p.GradleAarProjects {
			project.AarProjects = append(project.AarProjects, descriptor.AarProject{
				Name:        aar.Name,
				AarFilePath: string(fspath.JoinStr(rev.Path, aar.AarFilePath)),
				ProjectDir:  string(fspath.JoinStr(sourceDir, "build", aar.Name)),
			})
		}
		if p.ShouldUsePublicationScriptPath != "" {
			project.ShouldUsePublicationScriptPath = string(fspath.JoinStr(rev.Path, p.ShouldUsePublicationScriptPath))
		}
		projects = append(projects, project)
		packages = append(packages, FindClasses(sourceDir, BasePackageClass)...)
	}

	var plugins []descriptor.GradlePlugin
	for _, p := range cfg.AndroidGradlePlugins() {
		plugins = append(plugins, descriptor.GradlePlugin{
			ID:        p.ID,
			Group:     p.Group,
			SourceDir: string(fspath.JoinStr(rev.Path, p.SourceDir)),
		})
	}

	if len(projects) == 0 && len(plugins) == 0 {
		return nil, nil
	}

	d := descriptor.NewAndroid(&descriptor.Android{
		PackageName:  name,
		Projects:     nonNil(projects),
		Plugins:      plugins,
		Packages:     packages,
		CoreFeatures: cfg.CoreFeatures(),
	})
	return &d, nil
}

func hasGradleBuild(dir types.FilesystemPath) bool {
	for _, file := range gradleBuildFiles {
		if fspath.IsFile(fspath.JoinStr(dir, file)) {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
