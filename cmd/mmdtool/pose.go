package main

import (
	"github.com/Faultbox/mmd-runtime/internal/model"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/motion"
)

// restAngle is the largest rotation, in radians, still recorded as rest.
const restAngle = 1e-5

// capturePose records the animated state of every bone that is away from
// rest and every non-zero morph. Solver output is not part of a pose.
func capturePose(m *model.Model, modelName string) *motion.Pose {
	pose := &motion.Pose{ModelName: modelName}
	for _, b := range m.Skeleton().Bones() {
		offset := b.AnimatedPosition().Sub(b.RestTranslation())
		rot := b.AnimatedRotation()
		if offset.IsZero() && rot.AngleTo(math.QuatIdentity()) <= restAngle {
			continue
		}
		pose.Bones = append(pose.Bones, motion.PoseBone{
			Name:     b.Name(),
			Position: [3]float32{offset.X, offset.Y, offset.Z},
			Rotation: [4]float32{rot.X, rot.Y, rot.Z, rot.W},
		})
	}
	morphs := m.Morph().Morphs()
	for i, w := range m.Morph().Weights() {
		if w != 0 {
			pose.Morphs = append(pose.Morphs, motion.PoseMorph{Name: morphs[i].Name, Weight: w})
		}
	}
	return pose
}
