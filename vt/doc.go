// Package vt implements a terminal state engine: it interprets the byte
// stream a program writes to a terminal, and maintains a model of what the
// terminal displays.
//
// The model is a fixed size grid of cells, a cursor, and a list of inline
// graphics regions for each of the Sixel, Kitty, and iTerm2 protocols.
// Parsing is incremental, and sequences may be split across any number of
// Feed calls.
//
// # Supported behavior
//
//   - Printing writes at the cursor and advances one column, without wrapping
//     at the right edge.
//   - CR, LF (no scrolling), TAB (8 column stops), and BS.
//   - Cursor positioning (CUP, CUU/CUD/CUF/CUB, CNL/CPL, CHA, VPA), save and
//     restore (DECSC/DECRC, CSI s/u), IND, NEL, and RI. All movement is
//     clamped to the grid.
//   - Erase in display and line, erase/insert/delete characters, and
//     insert/delete lines.
//   - SGR bold, italic, underline, and 8, 16, and 256 palette colors.
//   - Window title (OSC 0 and 2).
//
// # Graphics
//
// Each graphics region is anchored at the cursor position when its
// introducing sequence started. Sixel and Kitty pixel dimensions are
// converted to cells using a fixed ratio of PixelsPerColumn by PixelsPerRow,
// rounding up. iTerm2 dimensions are taken as cells. Missing or malformed
// dimensions produce a 0x0 region, never an error.
package vt
