// Package process runs external jobs under supervision.
//
// Every job is a single shell command line executed by a POSIX interpreter
// as the leader of a new process group, with standard output and standard
// error merged into one stream read by exactly one goroutine.
//
// # Supervisor
//
//	sup := process.NewSupervisor()
//
//	res, err := sup.Run(ctx, process.Job{
//	    Name:       "gradle",
//	    Command:    shell.New("gradle", "build", "-p", root, "-x", "test"),
//	    ReportPath: report,
//	    Mode:       process.ModeCapturing,
//	})
//	if err != nil {
//	    // the interpreter could not be started; the environment is broken
//	}
//	if res.TimedOut {
//	    // the report ends with a blank line and "TIMEOUT..."
//	}
//
// # Deadline and polling
//
// The supervisor wakes at intervals chosen by PollPolicy.Next: the base
// interval until the threshold has elapsed, then elapsed/divisor, never
// past the deadline. Process exit wakes it immediately. When the deadline
// is reached the whole group receives one SIGINT; nothing escalates to
// SIGKILL and the job is reported with TimeoutStatus whether or not the
// group honors the signal.
//
// # Modes
//
//   - ModeStreaming: output is copied to the console as it arrives; the
//     command writes its own report through redirection.
//   - ModeCapturing: output is appended to the report file as it arrives.
package process
