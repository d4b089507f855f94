// Package compiler turns script source into bytecode for the vm package.
//
// Pipeline: source → Tokenize → Structure → Parse → emit → Image
//
// The language has char, int, float, ptr and void primitives, flat structs,
// functions, operator overloads, if/else chains and while loops. Host
// functions, operators and structs are bound through a Registry before
// compiling.
package compiler
