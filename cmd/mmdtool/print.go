package main

import (
	"fmt"
	"io"

	"github.com/Faultbox/mmd-runtime/internal/model"
)

func printInfo(w io.Writer, scene *Scene, l *Loaded) {
	fmt.Fprintf(w, "Scene:  %s\n", scene.Name)
	fmt.Fprintf(w, "Model:  %s (%d bones, %d morphs, %d materials, %d rigid bodies)\n",
		l.Meta.Name, len(l.Meta.Bones), len(l.Meta.Morphs), len(l.Meta.Materials), l.Meta.RigidBodyCount)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Bones in transform order:")
	for _, b := range l.Model.Skeleton().SortedBones() {
		stage := ""
		if b.TransformAfterPhysics() {
			stage = " after physics"
		}
		extra := ""
		if b.IKSolver() != nil {
			extra += fmt.Sprintf(" ik(%d links)", len(b.IKSolver().Links()))
		}
		if b.AppendSolver() != nil {
			extra += " append"
		}
		fmt.Fprintf(w, "  %3d  order %d  %s%s%s\n", b.Index(), b.TransformOrder(), b.Name(), stage, extra)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Morphs:")
	for i, m := range l.Model.Morph().Morphs() {
		fmt.Fprintf(w, "  %3d  %-8s %s\n", i, m.Kind, m.Name)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Motions:")
	for _, a := range l.Motions {
		properties := 0
		if a.PropertyTrack != nil {
			properties = len(a.PropertyTrack.FrameNumbers)
		}
		fmt.Fprintf(w, "  %-16s frames %g-%g  bones %d  movable %d  morphs %d  property keys %d\n",
			a.Name, a.StartFrame(), a.EndFrame(), len(a.BoneTracks), len(a.MovableBoneTracks), len(a.MorphTracks), properties)
	}

	for _, c := range l.Composites {
		fmt.Fprintf(w, "  %-16s frames %g-%g  composite\n", c.Name, c.StartFrame(), c.EndFrame())
		for _, s := range c.Spans() {
			fmt.Fprintf(w, "    span %-12s [%g, %g] offset %g weight %g ease %g/%g\n",
				s.Name(), s.StartFrame, s.EndFrame, s.Offset, s.Weight, s.EaseInFrameTime, s.EaseOutFrameTime)
		}
	}

	if l.CameraAnim != nil {
		fmt.Fprintf(w, "  %-16s frames %g-%g  camera\n", l.CameraAnim.Name, l.CameraAnim.StartFrame(), l.CameraAnim.EndFrame())
	}
	fmt.Fprintln(w)

	if a := l.Model.CurrentAnimation(); a != nil {
		fmt.Fprintf(w, "Current: %s\n", a.Name())
	}
	fmt.Fprintf(w, "Duration: %g frames\n", l.Runtime.AnimationFrameTimeDuration())
}

func printPose(w io.Writer, l *Loaded, only string) error {
	m := l.Model
	fmt.Fprintf(w, "Frame %g\n", l.Runtime.CurrentFrameTime())

	if only != "" {
		b := m.Skeleton().BoneByName(only)
		if b == nil {
			return fmt.Errorf("bone %q not found", only)
		}
		p := b.WorldPosition()
		fmt.Fprintf(w, "  %s  %8.4f %8.4f %8.4f\n", b.Name(), p.X, p.Y, p.Z)
		return nil
	}

	for _, b := range m.Skeleton().Bones() {
		p := b.WorldPosition()
		fmt.Fprintf(w, "  %3d  %8.4f %8.4f %8.4f  %s\n", b.Index(), p.X, p.Y, p.Z, b.Name())
	}

	printStates(w, m)

	if cam := l.Camera; cam != nil {
		eye := cam.EyePosition()
		fmt.Fprintf(w, "Camera eye %.4f %.4f %.4f  fov %.4f\n", eye.X, eye.Y, eye.Z, cam.Fov)
	}
	return nil
}

func printStates(w io.Writer, m *model.Model) {
	fmt.Fprintf(w, "Visibility %g\n", m.Visibility())
	for i, s := range m.Skeleton().IKSolvers() {
		fmt.Fprintf(w, "IK %d %s enabled=%v result=%s\n", i, s.IKBone.Name(), s.Enabled(), s.Result())
	}
	for i, weight := range m.Morph().Weights() {
		if weight != 0 {
			fmt.Fprintf(w, "Morph %s %.4f\n", m.Morph().Morphs()[i].Name, weight)
		}
	}
}
