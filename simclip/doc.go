// Package simclip embeds speech clips with a CLIP-style audio similarity
// model and scores pairwise clip similarity.
//
// The model itself is an external collaborator behind the Model interface;
// ONNXModel runs an exported model through ONNX Runtime. Scorer turns a batch
// of embeddings into per-clip nearest-neighbor lists, scoring in fixed-size
// chunks so memory stays bounded on large folders.
package simclip
