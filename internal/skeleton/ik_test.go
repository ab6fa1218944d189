package skeleton

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// legRig is hip, knee and ankle on the Y axis plus a root IK bone.
func legRig(iteration int, kneeLimit *pmx.IKLimitation) []pmx.Bone {
	return []pmx.Bone{
		root("hip", [3]float32{0, 4, 0}),
		child("knee", [3]float32{0, 2, 0}, 0),
		child("ankle", [3]float32{0, 0, 0}, 1),
		{
			Name:        "leg ik",
			ParentIndex: -1,
			Flag:        pmx.BoneFlagIsMovable | pmx.BoneFlagIsIKEnabled,
			IK: &pmx.IK{
				Target:             2,
				Iteration:          iteration,
				RotationConstraint: 1,
				Links: []pmx.IKLink{
					{Target: 1, Limitation: kneeLimit},
					{Target: 0},
				},
			},
		},
	}
}

func TestIKReachesGoal(t *testing.T) {
	s := New(legRig(40, nil), Options{})
	solver := s.Bone(3).IKSolver()
	if solver == nil {
		t.Fatal("IKSolver() = nil")
	}

	goal := math.Vec3{X: 1, Y: 1}
	s.Bone(3).SetAnimatedPosition(goal)
	initial := s.Bone(2).WorldPosition().Distance(goal)
	s.Update(false)

	if solver.BestDistance() >= initial {
		t.Errorf("BestDistance() = %v, want below %v", solver.BestDistance(), initial)
	}
	got := s.Bone(2).WorldPosition().Distance(goal)
	if !near(got, solver.BestDistance(), 1e-3) {
		t.Errorf("final distance = %v, BestDistance() = %v", got, solver.BestDistance())
	}
	if got > 0.1 {
		t.Errorf("ankle is %v from the goal", got)
	}
	if r := solver.Result(); r != SolveConverged && r != SolveAbortedNoImprovement {
		t.Errorf("Result() = %v", r)
	}
}

func TestIKBestDistanceMonotonic(t *testing.T) {
	goal := math.Vec3{X: 1.5, Y: 1, Z: 0.5}

	prev := float32(gomath.Inf(1))
	for k := 1; k <= 12; k++ {
		s := New(legRig(k, nil), Options{})
		s.Bone(3).SetAnimatedPosition(goal)
		s.Update(false)

		d := s.Bone(3).IKSolver().BestDistance()
		if d > prev {
			t.Errorf("iteration %d: BestDistance() = %v, previous %v", k, d, prev)
		}
		prev = d
	}
}

func TestIKIterationLimit(t *testing.T) {
	s := New(legRig(1000, nil), Options{IKIterationLimit: 8})
	if got := s.Bone(3).IKSolver().Iteration; got != 8 {
		t.Errorf("Iteration = %d, want 8", got)
	}

	s = New(legRig(1000, nil), Options{})
	if got := s.Bone(3).IKSolver().Iteration; got != DefaultIKIterationLimit {
		t.Errorf("Iteration = %d, want %d", got, DefaultIKIterationLimit)
	}
}

func TestIKNoImprovementKeepsIdentity(t *testing.T) {
	// The IK bone already sits on the ankle, so no pass can improve
	s := New(legRig(40, nil), Options{})
	s.Update(false)

	solver := s.Bone(3).IKSolver()
	if got := solver.Result(); got != SolveAbortedNoImprovement {
		t.Errorf("Result() = %v, want %v", got, SolveAbortedNoImprovement)
	}
	for _, b := range solver.Links() {
		if got := b.IKRotation(); got != math.QuatIdentity() {
			t.Errorf("%s IKRotation() = %v, want identity", b.Name(), got)
		}
	}
}

func TestIKDisabled(t *testing.T) {
	s := New(legRig(40, nil), Options{})
	solver := s.Bone(3).IKSolver()

	states := s.IKSolverStates()
	if len(states) != 1 || states[0] != 1 {
		t.Fatalf("IKSolverStates() = %v, want [1]", states)
	}

	solver.SetEnabled(false)
	if states[solver.Index()] != 0 {
		t.Error("SetEnabled(false) did not clear the state byte")
	}

	s.Bone(3).SetAnimatedPosition(math.Vec3{X: 1, Y: 1})
	s.Update(false)
	if got := s.Bone(2).WorldPosition(); !nearVec(got, math.Vec3{}, eps) {
		t.Errorf("disabled chain moved the ankle to %v", got)
	}
	if got := solver.Solve(); got != SolveIdle {
		t.Errorf("Solve() = %v, want %v", got, SolveIdle)
	}

	s.ResetIKStates()
	if !solver.Enabled() {
		t.Error("ResetIKStates() did not enable the solver")
	}
}

func TestIKPlaneLimit(t *testing.T) {
	lo, hi := float32(-gomath.Pi), float32(-0.008726646)
	limit := &pmx.IKLimitation{Min: [3]float32{lo, 0, 0}, Max: [3]float32{hi, 0, 0}}
	s := New(legRig(40, limit), Options{})

	knee := s.Bone(3).IKSolver().links[0]
	if knee.plane != axisX {
		t.Fatalf("plane = %v, want axisX", knee.plane)
	}

	goal := math.Vec3{Y: 1, Z: 0.5}
	s.Bone(3).SetAnimatedPosition(goal)
	s.Update(false)

	if knee.planeModeAngle < lo || knee.planeModeAngle > hi {
		t.Errorf("planeModeAngle = %v, want within [%v, %v]", knee.planeModeAngle, lo, hi)
	}

	q := s.Bone(1).IKRotation()
	angle := float32(2 * gomath.Atan2(float64(q.X), float64(q.W)))
	if angle < lo-1e-3 || angle > hi+1e-3 {
		t.Errorf("knee angle = %v, want within [%v, %v]", angle, lo, hi)
	}
	if q.Y != 0 || q.Z != 0 {
		t.Errorf("knee rotated off the X axis: %v", q)
	}
	if d := s.Bone(2).WorldPosition().Distance(goal); d >= goal.Length() {
		t.Errorf("ankle distance %v did not improve", d)
	}
}

func TestIKLinkPlaneDetection(t *testing.T) {
	tests := []struct {
		name     string
		min, max [3]float32
		want     solveAxis
	}{
		{"x", [3]float32{-1, 0, 0}, [3]float32{1, 0, 0}, axisX},
		{"y", [3]float32{0, -1, 0}, [3]float32{0, 1, 0}, axisY},
		{"z", [3]float32{0, 0, -1}, [3]float32{0, 0, 1}, axisZ},
		{"free", [3]float32{-1, -1, 0}, [3]float32{1, 1, 0}, axisNone},
		{"swapped", [3]float32{1, 0, 0}, [3]float32{-1, 0, 0}, axisX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := newIKLink(&Bone{}, &pmx.IKLimitation{Min: tt.min, Max: tt.max})
			if link.plane != tt.want {
				t.Errorf("plane = %v, want %v", link.plane, tt.want)
			}
			if link.min.X > link.max.X {
				t.Errorf("min %v above max %v", link.min, link.max)
			}
		})
	}
}

func TestLegFixture(t *testing.T) {
	model, err := pmx.LoadModel("../../pkg/pmx/testdata/leg.yaml")
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	s := New(model.Bones, Options{})

	ik := s.BoneByName("左足ＩＫ")
	ik.SetAnimatedPosition(ik.RestTranslation().Add(math.Vec3{Y: 1, Z: 0.5}))
	s.Update(false)

	solver := ik.IKSolver()
	if solver.BestDistance() > 0.5 {
		t.Errorf("BestDistance() = %v", solver.BestDistance())
	}

	// The append bone copies the thigh including its IK rotation
	thigh := math.QuatFromMat4(s.BoneByName("左足").WorldMatrix())
	follower := math.QuatFromMat4(s.BoneByName("左足D").WorldMatrix())
	if angle := thigh.AngleTo(follower); angle > 1e-3 {
		t.Errorf("左足D differs from 左足 by %v rad", angle)
	}
}

func TestSolveResultString(t *testing.T) {
	tests := map[SolveResult]string{
		SolveIdle:                 "idle",
		SolveIterating:            "iterating",
		SolveConverged:            "converged",
		SolveAbortedNoImprovement: "aborted",
		SolveResult(42):           "unknown",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
