// The afdauditdb command lets the Job-ID Resolver's persistent
// modernc.org/kv database, the one afdquery -jobinfo-db reads (afdquery
// itself never writes records into it), be inspected directly. Output is a JSON
// stream on stdout, one object per job ID, in key order.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/holger24/afd-logquery/internal/jobinfo"
)

func main() {
	path := flag.String("db", "", "specify job-info kv database file to audit (required)")
	flag.Parse()
	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := jobinfo.OpenKVStore(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	err = db.All(func(jobID uint64, info jobinfo.Info) error {
		return enc.Encode(record{
			JobID:           jobID,
			User:            info.User,
			MailDestination: info.MailDestination,
			Dir:             info.Dir,
			DirID:           info.DirID,
		})
	})
	if err != nil {
		log.Fatal(err)
	}
}

type record struct {
	JobID           uint64 `json:"job_id"`
	User            string `json:"user"`
	MailDestination string `json:"mail_destination"`
	Dir             string `json:"dir"`
	DirID           uint32 `json:"dir_id"`
}
