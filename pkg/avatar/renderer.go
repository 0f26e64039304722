// Package avatar defines the narrow contract to the 3D avatar renderer.
//
// The scene graph, skeleton blending, camera and lighting live in an
// external renderer process. The orchestrator only ever needs to switch
// the active animation and swap the scene background, so that is all this
// interface exposes.
package avatar

// Well-known animation states used by the orchestrator.
const (
	AnimIdle = "idle"
	AnimTalk = "talk"
)

// Renderer is the contract to the external avatar renderer.
type Renderer interface {
	// PlayAnimation switches the avatar to the named animation state.
	PlayAnimation(name string)

	// CurrentAnimation returns the name of the active animation state.
	CurrentAnimation() string

	// ChangeSceneBackground replaces the scene background with the image
	// at the given URL. Blocks until the background is applied.
	ChangeSceneBackground(url string) error

	// ResetSceneBackground restores the transparent default background.
	ResetSceneBackground()
}
