package gpu

import "fmt"

// Uniform names shared by the renderer and shader programs.
const (
	UniformModel          = "Model"
	UniformView           = "View"
	UniformProjection     = "Projection"
	UniformMVP            = "MVP"
	UniformNormalMatrix   = "NormalMatrix"
	UniformCameraPosition = "CameraPosition"
	UniformBaseColor      = "BaseColor"
	UniformAmbient        = "Ambient"
	UniformLightDirection = "LightDirection"
	UniformLightCount     = "PointLightCount"
	UniformDepthWeight    = "DepthWeight"
	UniformEpsilon        = "Epsilon"
	UniformFace           = "Face"
	UniformSampleCount    = "SampleCount"
	UniformSampleDelta    = "SampleDelta"
)

// MaxPointLights is the length of the point light uniform array.
const MaxPointLights = 8

// UniformLightPosition names the position of point light i.
func UniformLightPosition(i int) string {
	return fmt.Sprintf("PointLights[%d].Position", i)
}

// UniformLightColor names the color of point light i.
func UniformLightColor(i int) string {
	return fmt.Sprintf("PointLights[%d].Color", i)
}

// UniformTexture names the sampler bound to texture unit i.
func UniformTexture(i int) string {
	return fmt.Sprintf("Texture%d", i)
}
