// Package convert runs one subtitle stream through the decoder into an
// output sink and reports what happened. The root command and every batch
// worker go through Run; Probe walks a stream without rendering anything.
package convert
