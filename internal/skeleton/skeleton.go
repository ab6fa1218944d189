// Package skeleton evaluates the runtime bone graph: transform-order
// sorting, local and world matrix passes, append transforms and IK.
package skeleton

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// DefaultIKIterationLimit caps the iteration count of every IK solver.
const DefaultIKIterationLimit = 256

// Options configures skeleton construction.
type Options struct {
	IKIterationLimit int // 0 uses DefaultIKIterationLimit
}

// Skeleton owns every runtime bone of a model.
type Skeleton struct {
	bones       []*Bone
	sorted      []*Bone
	sortedRoots []*Bone
	stageRoots  []*Bone // Roots plus bones whose parent runs in the other stage
	byName      map[string]*Bone

	ikSolvers []*IKSolver
	ikStates  []uint8
}

// New builds the runtime bones from metadata. Out of range references are
// logged and left unbound.
func New(meta []pmx.Bone, opts Options) *Skeleton {
	limit := opts.IKIterationLimit
	if limit <= 0 {
		limit = DefaultIKIterationLimit
	}

	s := &Skeleton{
		bones:  make([]*Bone, len(meta)),
		byName: make(map[string]*Bone, len(meta)),
	}
	for i := range meta {
		b := newBone(i, &meta[i])
		s.bones[i] = b
		if _, dup := s.byName[b.name]; !dup {
			s.byName[b.name] = b
		}
	}

	for i := range meta {
		m := &meta[i]
		b := s.bones[i]

		if p := m.ParentIndex; p >= 0 {
			if p < len(meta) && p != i {
				b.parent = s.bones[p]
				b.parent.children = append(b.parent.children, b)
			} else {
				logger.Warn("bone parent out of range", zap.String("bone", b.name), zap.Int("parent", p))
			}
		}

		position := vec3(m.Position)
		if b.parent != nil {
			position = position.Sub(vec3(meta[b.parent.index].Position))
		}
		b.restTranslation = position
		b.animatedPosition = position
	}

	for i := range meta {
		m := &meta[i]
		b := s.bones[i]

		if at := m.AppendTransform; at != nil {
			if target, ok := s.bone(at.ParentIndex); ok {
				b.appendSolver = newAppendSolver(m, target)
			} else {
				logger.Warn("append transform target out of range", zap.String("bone", b.name), zap.Int("target", at.ParentIndex))
			}
		}

		if ik := m.IK; ik != nil {
			s.buildIKSolver(b, ik, limit)
		}
	}

	s.ikStates = make([]uint8, len(s.ikSolvers))
	for i, solver := range s.ikSolvers {
		solver.states = s.ikStates
		s.ikStates[i] = 1
	}

	s.sorted = make([]*Bone, len(s.bones))
	copy(s.sorted, s.bones)
	sort.SliceStable(s.sorted, func(i, j int) bool {
		return s.sorted[i].transformOrder < s.sorted[j].transformOrder
	})
	for _, b := range s.sorted {
		if b.parent == nil {
			s.sortedRoots = append(s.sortedRoots, b)
		}
		if b.parent == nil || b.parent.afterPhysics != b.afterPhysics {
			s.stageRoots = append(s.stageRoots, b)
		}
	}

	s.refreshAll()
	return s
}

func (s *Skeleton) buildIKSolver(b *Bone, ik *pmx.IK, limit int) {
	target, ok := s.bone(ik.Target)
	if !ok {
		logger.Warn("ik target out of range", zap.String("bone", b.name), zap.Int("target", ik.Target))
		return
	}

	solver := &IKSolver{
		IKBone:     b,
		Target:     target,
		Iteration:  min(ik.Iteration, limit),
		LimitAngle: ik.RotationConstraint,
		index:      len(s.ikSolvers),
	}
	for _, l := range ik.Links {
		link, ok := s.bone(l.Target)
		if !ok {
			logger.Warn("ik link out of range", zap.String("bone", b.name), zap.Int("link", l.Target))
			continue
		}
		if link.ikRotation == nil {
			q := math.QuatIdentity()
			link.ikRotation = &q
		}
		link.ikChains = append(link.ikChains, solver)
		solver.links = append(solver.links, newIKLink(link, l.Limitation))
	}

	b.ikSolver = solver
	s.ikSolvers = append(s.ikSolvers, solver)
}

func (s *Skeleton) bone(index int) (*Bone, bool) {
	if index < 0 || index >= len(s.bones) {
		return nil, false
	}
	return s.bones[index], true
}

func vec3(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// Bones returns the bones in metadata order.
func (s *Skeleton) Bones() []*Bone { return s.bones }

// SortedBones returns the bones in transform order.
func (s *Skeleton) SortedBones() []*Bone { return s.sorted }

// Bone returns the bone at a metadata index, or nil.
func (s *Skeleton) Bone(index int) *Bone {
	b, _ := s.bone(index)
	return b
}

// BoneByName returns the first bone with the given name, or nil.
func (s *Skeleton) BoneByName(name string) *Bone { return s.byName[name] }

// IKSolvers returns every solver, indexed like IKSolverStates.
func (s *Skeleton) IKSolvers() []*IKSolver { return s.ikSolvers }

// IKSolverStates returns one byte per IK solver, non-zero when enabled.
// The solvers read their Enabled flag from this array.
func (s *Skeleton) IKSolverStates() []uint8 { return s.ikStates }

// ResetIKStates enables every IK solver.
func (s *Skeleton) ResetIKStates() {
	for i := range s.ikStates {
		s.ikStates[i] = 1
	}
}

// ResetPose returns every bone to rest and refreshes all matrices.
func (s *Skeleton) ResetPose() {
	for _, b := range s.bones {
		b.ResetPose()
	}
	s.refreshAll()
}

// refreshAll recomputes every matrix without solving.
func (s *Skeleton) refreshAll() {
	for _, b := range s.sorted {
		b.updateLocalMatrix()
	}
	for _, b := range s.sortedRoots {
		b.updateWorldMatrix()
	}
}

// Update evaluates the bones of one stage. Call with false before physics
// and with true after it.
func (s *Skeleton) Update(afterPhysics bool) {
	for _, b := range s.sorted {
		if b.afterPhysics != afterPhysics {
			continue
		}
		b.updateLocalMatrix()
	}

	for _, b := range s.stageRoots {
		if b.afterPhysics != afterPhysics {
			continue
		}
		b.updateWorldMatrix()
	}

	for _, b := range s.sorted {
		if b.afterPhysics != afterPhysics {
			continue
		}

		if b.appendSolver != nil {
			b.appendSolver.Update()
			b.updateLocalMatrix()
			b.updateOwnWorldMatrix()
		}

		if b.ikSolver != nil && b.ikSolver.Enabled() {
			b.ikSolver.Solve()
			b.updateOwnWorldMatrix()
		}
	}

	for _, b := range s.stageRoots {
		if b.afterPhysics != afterPhysics {
			continue
		}
		b.updateWorldMatrix()
	}
}
