/*
Package protoarray implements proto array fork choice as outlined:
https://github.com/protolambda/lmd-ghost#array-based-stateful-dag-proto_array
This was motivated by the following requirements:
1. Correct: LMD-GHOST head selection under the justified and finalized checkpoints
2. Performant: head recomputation in a single reverse pass over the node array
3. Minimal: votes are batched and only changed votes produce weight deltas

Blocks are stored in an append only array where a parent always precedes its
children. Every parent, best child and best descendant link is an index into
that array. The array is compacted when the finalized block moves far enough
from its start.
*/
package protoarray
