// Package watch implements change detection and notification for blobs in
// an Azure Storage container. A Provider hands out single-use watch tokens,
// one per blob path; each token polls the blob in the background, decides
// whether it changed via a fingerprint strategy (version tag or content
// hash), debounces rapid successive changes, and invokes registered
// callbacks exactly once when the change settles. Consumers replace a fired
// token by calling Watch again, typically from the callback itself.
package watch
