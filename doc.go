/*
Package aokv implements a binary container format and paired
writer/reader for an append-only key/value store. Any prefix of the
writer's output is a valid store containing every record completed
before the cut, which makes the format suitable for sinks that can be
truncated at any moment, such as a streamed download.

Data Structure Documentation

File

A file is a key/value block followed by any mix of key/value and
index blocks. Index blocks snapshot the live key map and let readers
bootstrap from the tail instead of scanning the whole file.

    File layout:
    +-----------+---------------+---------+---------------+---------+
    | KVP block | KVP block ... | index 1 | KVP block ... | index n |
    +-----------+---------------+---------+---------------+---------+

Block

Every block opens with two 32-bit magics and its total size, and ends
with a 4-byte footer recording the distance back to the start of the
nearest earlier index block (or to the file start if none). The first
magic brands the format; the second selects the block type, offset by
the store's file ID.

    KVP block:
    +--------------+--------------+------------------+----------------+-----+------+---------------------+
    | MAGIC0 (u32) | MAGIC1 (u32) | BLOCK_SIZE (u32) | KEY_SIZE (u32) | key | body | BACK_DISTANCE (u32) |
    +--------------+--------------+------------------+----------------+-----+------+---------------------+

    Index block:
    +--------------+--------------+------------------+---------+---------------------+
    | MAGIC0 (u32) | MAGIC1 (u32) | BLOCK_SIZE (u32) | content | BACK_DISTANCE (u32) |
    +--------------+--------------+------------------+---------+---------------------+

Body

A body is a u32-prefixed JSON descriptor naming the value variant,
followed by the raw payload for the typed-array and byte-buffer
variants. Index content is the key map as a JSON object in key
insertion order. Both may be replaced wholesale by their compressed
form; a probe byte (offset 4 for bodies, offset 0 for index content)
distinguishes the two, since the plain forms always carry '{' there.

    Body:
    +----------------+--------------------------+--------------+
    | descSize (u32) | descriptor (JSON, UTF-8) | post (bytes) |
    +----------------+--------------------------+--------------+

All integers are little-endian.
*/
package aokv
