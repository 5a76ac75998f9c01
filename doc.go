// Package extsort provides an external (disk-spilling) sort-merge engine for
// fixed-format serialized records.
//
// An unsorted record stream too large to sort in memory is partitioned into
// sorted, optionally compressed on-disk runs, and the runs are merged into
// one globally sorted stream under bounded memory, bounded merge fan-in and
// guaranteed temp-storage reclamation, even when the merge fails or the
// session is cancelled.
//
// # Quick Start
//
//	sorter, _ := extsort.NewSorter[uint64](mySerializer,
//	    extsort.WithMaxFanIn(64),
//	    extsort.WithCompression("lz4"),
//	)
//	defer sorter.Close()
//
//	for _, rec := range records {
//	    _ = sorter.Write(rec)
//	}
//
//	rdr, _ := sorter.Sort()
//	for {
//	    rec, err := rdr.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // rec is the next record in sorted order
//	}
//
// The caller supplies a Serializer: record codec plus total-order comparator.
// The engine never interprets record contents beyond length and ordering.
//
// # Resource Model
//
// Each session owns a channel manager that tracks every temp file the sort
// creates and guarantees it is deleted exactly once, including on failure and
// cancellation. Merging is single-threaded and synchronous per session;
// independent sessions may run concurrently with no shared state.
package extsort
