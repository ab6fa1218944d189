package animation

import (
	gomath "math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/morph"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/motion"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

const eps = 1e-4

func near(a, b float32) bool {
	return within(a, b, eps)
}

func within(a, b, tolerance float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(tolerance)
}

func nearVec(a, b math.Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

// nearQuat treats q and -q as the same rotation.
func nearQuat(a, b math.Quat) bool {
	return gomath.Abs(float64(a.Dot(b))) >= 1-eps
}

// fakeModel is a four bone leg with one IK solver and one morph.
type fakeModel struct {
	skeleton   *skeleton.Skeleton
	morph      *morph.Controller
	visibility float32
}

func newFakeModel() *fakeModel {
	bones := []pmx.Bone{
		{Name: "センター", Position: [3]float32{0, 8, 0}, ParentIndex: -1, Flag: pmx.BoneFlagIsRotatable | pmx.BoneFlagIsMovable},
		{Name: "左ひざ", Position: [3]float32{0, 4, 0}, ParentIndex: 0, Flag: pmx.BoneFlagIsRotatable},
		{Name: "左足首", Position: [3]float32{0, 1, 0}, ParentIndex: 1, Flag: pmx.BoneFlagIsRotatable},
		{
			Name: "左足ＩＫ", Position: [3]float32{0, 1, 0}, ParentIndex: -1,
			Flag: pmx.BoneFlagIsRotatable | pmx.BoneFlagIsMovable | pmx.BoneFlagIsIKEnabled,
			IK:   &pmx.IK{Target: 2, Iteration: 10, RotationConstraint: 1, Links: []pmx.IKLink{{Target: 1}}},
		},
	}
	s := skeleton.New(bones, skeleton.Options{})
	return &fakeModel{
		skeleton: s,
		morph: morph.NewController(s, nil, nil, []pmx.Morph{
			{Name: "まばたき", Kind: pmx.MorphKindVertex},
			{Name: "笑い", Kind: pmx.MorphKindVertex, Target: 1},
		}),
		visibility: 1,
	}
}

func (m *fakeModel) Skeleton() *skeleton.Skeleton { return m.skeleton }
func (m *fakeModel) Morph() *morph.Controller     { return m.morph }
func (m *fakeModel) SetVisibility(v float32)      { m.visibility = v }

func (m *fakeModel) bone(name string) *skeleton.Bone { return m.skeleton.BoneByName(name) }

// recorder is a PoseWriter that keeps the last written values.
type recorder struct {
	rotations  map[*skeleton.Bone]math.Quat
	positions  map[*skeleton.Bone]math.Vec3
	morphs     map[int]float32
	ik         map[*skeleton.IKSolver]bool
	visibility *float32
}

func newRecorder() *recorder {
	return &recorder{
		rotations: make(map[*skeleton.Bone]math.Quat),
		positions: make(map[*skeleton.Bone]math.Vec3),
		morphs:    make(map[int]float32),
		ik:        make(map[*skeleton.IKSolver]bool),
	}
}

func (r *recorder) SetBoneRotation(b *skeleton.Bone, q math.Quat) { r.rotations[b] = q }
func (r *recorder) SetBonePosition(b *skeleton.Bone, p math.Vec3) { r.positions[b] = p }
func (r *recorder) SetMorphWeight(index int, w float32)          { r.morphs[index] = w }
func (r *recorder) SetVisibility(v float32)                      { r.visibility = &v }

func (r *recorder) SetIKEnabled(s *skeleton.IKSolver, enabled bool) { r.ik[s] = enabled }

func loadWalk(t *testing.T) *motion.ModelAnimation {
	t.Helper()
	anim, err := motion.LoadModelAnimation(filepath.Join("testdata", "walk.yaml"))
	if err != nil {
		t.Fatalf("LoadModelAnimation: %v", err)
	}
	return anim
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Use(zap.New(core))
	t.Cleanup(func() { logger.Use(nil) })
	return logs
}

// rotationTrack builds a single bone rotation track about Y with linear
// interpolation, one angle in degrees per frame.
func rotationTrack(name string, frames []uint32, degrees []float32) *motion.BoneTrack {
	track := motion.NewBoneTrack(name, len(frames))
	copy(track.FrameNumbers, frames)
	for i, d := range degrees {
		q := math.QuatFromAxisAngle(math.Vec3{Y: 1}, d*degToRad)
		copy(track.Rotations[i*4:], []float32{q.X, q.Y, q.Z, q.W})
		copy(track.RotationInterpolations[i*4:], []uint8{20, 107, 20, 107})
	}
	return track
}

func yRotation(degrees float32) math.Quat {
	return math.QuatFromAxisAngle(math.Vec3{Y: 1}, degrees*degToRad)
}
