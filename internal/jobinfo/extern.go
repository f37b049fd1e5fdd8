package jobinfo

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/biogo/external"
)

// LookupTool describes an invocation of an external job-info helper
// program: each field contributes an argument via a Go template in its
// `buildarg` tag.
type LookupTool struct {
	// Cmd names the helper binary; it defaults to "afd_get_job_info".
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}afd_get_job_info{{end}}"`

	JobID uint64 `buildarg:"-j{{split}}{{printf \"%x\" .}}"`
	Mode  string `buildarg:"{{with .}}-m{{split}}{{.}}{{end}}"`
}

// BuildCommand renders t into an *exec.Cmd.
func (t LookupTool) BuildCommand() (*exec.Cmd, error) {
	cl := external.Must(external.Build(t))
	return exec.Command(cl[0], cl[1:]...), nil
}

// ExternalTool is a Resolver that shells out to a LookupTool helper
// program and parses its tab-separated stdout. Expected output is one
// line:
//
//	user<TAB>mail_destination<TAB>dir<TAB>dir_id(hex)
type ExternalTool struct {
	// Cmd overrides the helper binary name; empty uses the LookupTool
	// default.
	Cmd string
}

// Lookup implements Resolver.
func (e ExternalTool) Lookup(jobID uint64, mode Mode) (Info, error) {
	modeStr := "user"
	if mode == DirOnly {
		modeStr = "dir"
	}
	tool := LookupTool{Cmd: e.Cmd, JobID: jobID, Mode: modeStr}
	cmd, err := tool.BuildCommand()
	if err != nil {
		return Info{}, fmt.Errorf("jobinfo: build command: %w", err)
	}
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("jobinfo: run %s: %w", cmd.Path, err)
	}
	return parseLookupOutput(out)
}

func parseLookupOutput(out []byte) (Info, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		f := strings.Split(string(line), "\t")
		if len(f) != 4 {
			return Info{}, fmt.Errorf("jobinfo: unexpected field count in helper output: %q", line)
		}
		dirID, err := strconv.ParseUint(strings.TrimSpace(f[3]), 16, 32)
		if err != nil {
			return Info{}, fmt.Errorf("jobinfo: bad dir id in helper output: %w", err)
		}
		return Info{
			User:            strings.TrimSpace(f[0]),
			MailDestination: strings.TrimSpace(f[1]),
			Dir:             strings.TrimSpace(f[2]),
			DirID:           uint32(dirID),
		}, nil
	}
	if err := sc.Err(); err != nil {
		return Info{}, err
	}
	return Info{}, ErrUnknownJob
}
