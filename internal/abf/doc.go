// Package abf reads Axon Binary Format files produced by pClamp and
// AxoScope acquisition software.
//
// Both header generations are supported: ABF v1.x ("ABF " or "CLPS"
// signature) stores every field at a fixed byte offset, while ABF v2.x
// ("ABF2") stores a section map at byte 76 whose entries locate the
// protocol, per-channel ADC, strings, data and synch-array sections in
// 512-byte blocks.
//
// Read returns a domain.Recording: episodic acquisitions map one episode to
// one sweep, gap-free acquisitions yield a single sweep holding the whole
// record. Integer samples are converted to physical units using the
// per-channel instrument scale factor, signal and programmable gains,
// telegraph additional gain, ADC range and resolution, and the instrument
// and signal offsets. The first ADC channel becomes the "primary" series and
// each sweep carries its own time vector starting at zero.
package abf
