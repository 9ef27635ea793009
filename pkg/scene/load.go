package scene

import "github.com/taigrr/prism/pkg/models"

// NewModelFromImport builds a model with one group per imported primitive.
// Groups whose properties are translucent get the standard translucent
// material, the rest the standard lit material.
func NewModelFromImport(im *models.Import, d *models.Defaults) *Model {
	m := NewModel()
	for _, ig := range im.Groups {
		g := m.AddGroup(ig.Name)
		g.SetMesh(ig.Mesh)
		g.SetMaterialProperties(ig.Properties)
		mat := models.Basic3DMaterial
		if ig.Properties != nil && ig.Properties.IsTranslucent() {
			mat = models.SampleTranslucentMaterial
		}
		g.SetMaterial(d.Material(mat))
	}
	return m
}
