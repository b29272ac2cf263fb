// Package build compiles checked-out source trees with whichever build
// system they carry.
//
// Candidates are tried in a fixed order (Gradle wrapper, Gradle, Ant,
// Maven) and the first one that exits with status zero wins. Every
// attempt runs in capturing mode, so its report file holds a header line
// naming the command followed by the build's merged output.
//
//	o := build.NewOrchestrator(supervisor)
//	sum, err := o.Build(ctx, "/work/rev_a_b/git", "/reports/rev_a_b", "")
//	fmt.Println(sum) // True; True; False; False; Gradle
package build
