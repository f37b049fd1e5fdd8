// afdquery searches an AFD delivery-log directory for records matching
// the given time window, name/host globs, size and transfer-time
// filters, directory/user/job-id selectors and protocol mask, printing
// surviving rows and a running summary to stdout. An open end time (-1,
// the default when -end is omitted) switches the query into following
// the currently-open generation once history has been exhausted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/holger24/afd-logquery/internal/archive"
	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/jobinfo"
	"github.com/holger24/afd-logquery/internal/logrec"
	"github.com/holger24/afd-logquery/internal/query"
	"github.com/holger24/afd-logquery/internal/sink"
)

func main() {
	var names, hosts, dirs, users, dirIDs, jobIDs, protocols sliceValue
	dir := flag.String("dir", "", "specify log directory to search (required)")
	base := flag.String("base", "delivery.log", "specify log generation base filename")
	start := flag.String("start", "", "specify window start as YYYY-MM-DD_HH:MM:SS (default: open)")
	end := flag.String("end", "", "specify window end as YYYY-MM-DD_HH:MM:SS (default: open, enables following)")
	flag.Var(&names, "name", "specify a file-name glob (may be present more than once, prefix with ! to negate)")
	flag.Var(&hosts, "host", "specify a host glob (may be present more than once, prefix with ! to negate)")
	flag.Var(&dirs, "dirglob", "specify a resolved directory glob (may be present more than once)")
	flag.Var(&users, "user", "specify a resolved user glob (may be present more than once)")
	flag.Var(&dirIDs, "dirid", "specify a directory ID in hex (may be present more than once)")
	flag.Var(&jobIDs, "jobid", "specify a job ID in hex (may be present more than once)")
	flag.Var(&protocols, "protocol", "specify a protocol to include, e.g. ftp or sftp (default: all; may be present more than once)")
	size := flag.String("size", "", "specify a size filter, e.g. '>1048576' or '=0'")
	xtime := flag.String("xtime", "", "specify a transfer-time filter, e.g. '>30.0'")
	remote := flag.Bool("remote", false, "specify to display/match remote_name instead of local_name")
	archivedOnly := flag.Bool("archived-only", false, "specify to keep only records whose archive is still present")
	receivedOnly := flag.Bool("received-only", false, "specify to keep only received (input) records")
	outputOnly := flag.Bool("output-only", false, "specify to keep only delivered (output) records")
	confirmation := flag.Bool("confirmation", false, "specify to keep confirmation records")
	limit := flag.Int("limit", 0, "specify a hard cap on surviving records (0 is unbounded)")
	jobInfoTool := flag.String("jobinfo-cmd", "", "specify an external job-info helper binary (default: afd_get_job_info)")
	jobInfoDB := flag.String("jobinfo-db", "", "specify a kv job-info database instead of an external helper")
	switchGrace := flag.Int64("switch-grace", 300, "specify the generation-rotation grace period in seconds")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -dir <log-dir> [options] >out.log 2>out.err

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	c := criteria.Criteria{
		ProtocolMask: logrec.AllProtocols,
		ListLimit:    *limit,
	}
	if *remote {
		c.NameDisplay = criteria.DisplayRemote
	}
	if *archivedOnly {
		c.View |= logrec.ViewArchivedOnly
	}
	if *receivedOnly {
		c.View |= logrec.ViewReceivedOnly
	}
	if *outputOnly {
		c.View |= logrec.ViewOutputOnly
	}
	if *confirmation {
		c.View |= logrec.ViewConfirmation
	}
	if len(protocols) > 0 {
		var m logrec.Mask
		for _, p := range protocols {
			proto, ok := protocolNames[strings.ToLower(p)]
			if !ok {
				log.Fatalf("bad -protocol: unknown protocol %q", p)
			}
			m = m.Set(proto)
		}
		c.ProtocolMask = m
	}

	var err error
	c.TimeWindow.Start, err = parseWindowBound(*start)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	c.TimeWindow.End, err = parseWindowBound(*end)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}

	for _, n := range names {
		c.NamePatterns = append(c.NamePatterns, criteria.ParsePattern(n))
	}
	for _, h := range hosts {
		c.HostPatterns = append(c.HostPatterns, criteria.ParsePattern(h))
	}
	for _, d := range dirs {
		c.DirGlobs = append(c.DirGlobs, criteria.ParsePattern(d))
	}
	for _, u := range users {
		c.UserGlobs = append(c.UserGlobs, criteria.ParsePattern(u))
	}
	for _, d := range dirIDs {
		id, err := strconv.ParseUint(d, 16, 32)
		if err != nil {
			log.Fatalf("bad -dirid %q: %v", d, err)
		}
		c.DirIDs = append(c.DirIDs, uint32(id))
	}
	for _, j := range jobIDs {
		id, err := strconv.ParseUint(j, 16, 64)
		if err != nil {
			log.Fatalf("bad -jobid %q: %v", j, err)
		}
		c.JobIDs = append(c.JobIDs, id)
	}

	if *size != "" {
		c.SizeFilter, err = parseNumericFilter(*size)
		if err != nil {
			log.Fatalf("bad -size: %v", err)
		}
	}
	if *xtime != "" {
		c.TransferTimeFilter, err = parseNumericFilter(*xtime)
		if err != nil {
			log.Fatalf("bad -xtime: %v", err)
		}
	}

	var resolver jobinfo.Resolver
	if *jobInfoDB != "" {
		kvs, err := jobinfo.OpenKVStore(*jobInfoDB)
		if err != nil {
			log.Fatal(err)
		}
		defer kvs.Close()
		resolver = kvs
	} else {
		resolver = jobinfo.ExternalTool{Cmd: *jobInfoTool}
	}

	snk := sink.NewConsoleSink(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		snk.Stop()
		cancel()
	}()

	now := func() int64 { return time.Now().Unix() }
	arch := archive.NewInterpreter(now)
	grammar := logrec.NewGrammar()

	st := query.NewState(*dir, *base, *switchGrace, grammar, arch, resolver, nil, snk, c)
	phase, err := st.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}

	if phase == query.Following {
		snk.PublishStatus("following")
		if _, err := st.Follow(ctx); err != nil {
			log.Fatal(err)
		}
	}
}

// parseWindowBound parses a YYYY-MM-DD_HH:MM:SS timestamp, or returns -1
// for an empty string (open bound).
func parseWindowBound(s string) (int64, error) {
	if s == "" {
		return -1, nil
	}
	t, err := time.ParseInLocation("2006-01-02_15:04:05", s, time.Local)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// parseNumericFilter parses a comparator-prefixed numeric filter such as
// ">1048576", "=0", "<30.5" or "!=0".
func parseNumericFilter(s string) (criteria.NumericFilter, error) {
	var op criteria.Comparator
	switch {
	case strings.HasPrefix(s, "!="):
		op, s = criteria.CmpNE, s[2:]
	case strings.HasPrefix(s, ">"):
		op, s = criteria.CmpGT, s[1:]
	case strings.HasPrefix(s, "<"):
		op, s = criteria.CmpLT, s[1:]
	case strings.HasPrefix(s, "="):
		op, s = criteria.CmpEQ, s[1:]
	default:
		op = criteria.CmpEQ
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return criteria.NumericFilter{}, err
	}
	return criteria.NumericFilter{Op: op, Value: v}, nil
}

// protocolNames maps the -protocol flag's spellings to protocol codes.
var protocolNames = map[string]logrec.Protocol{
	"ftp":     logrec.FTP,
	"ftps":    logrec.FTPS,
	"sftp":    logrec.SFTP,
	"scp":     logrec.SCP,
	"http":    logrec.HTTP,
	"https":   logrec.HTTPS,
	"smtp":    logrec.SMTP,
	"smtps":   logrec.SMTPS,
	"loc":     logrec.LOC,
	"exec":    logrec.EXEC,
	"wmo":     logrec.WMO,
	"map":     logrec.MAP,
	"dfax":    logrec.DFAX,
	"de-mail": logrec.DEMail,
}

// sliceValue is a multi-value flag value.
type sliceValue []string

// Set adds the string to the sliceValue.
func (s *sliceValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// String satisfies the flag.Value interface.
func (s *sliceValue) String() string {
	return fmt.Sprintf("%q", []string(*s))
}
