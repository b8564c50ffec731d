// Package pixpipe is a streaming pixel-processing pipeline for raw camera
// frames: format conversion, debayering, color correction, cropping,
// subsampling, convolution, palettization and QOI compression composed as a
// chain of line-oriented operations.
//
// Each operation owns a small fixed-capacity ring buffer holding only the few
// input lines it needs, so a full frame is never buffered at once and the
// total memory used by a pipeline is known before any work starts. The
// library is aimed at memory-constrained capture paths but runs anywhere.
package pixpipe
