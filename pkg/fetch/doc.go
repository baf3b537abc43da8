/*
Package fetch retrieves stage programs before the pipeline runs.

The worker image can either bake its stage programs in or name a source
per stage in the pipeline manifest. Two delivery paths exist:

  - gs://bucket/object: an object in a Cloud Storage scripts bucket
    (the default; uses the instance service account)
  - https://host/path: raw content from the source-control host

A Mux routes each source to the fetcher for its scheme. Fetched programs
are written executable via temp-file-and-rename so a partial download
never sits at the final path. A fetch failure is fatal and happens before
stage 1, so a worker with unreachable programs burns seconds, not GPU
hours.
*/
package fetch
