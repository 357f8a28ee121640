// Package bytecode lowers Lox syntax trees into a linear register machine
// program and executes it.
//
// # Architecture Overview
//
// The package consists of four parts:
//
//   - Opcodes and Instructions: a small fixed set of register instructions
//     covering loads, named variables, arithmetic, comparisons that set a
//     condition flag, labels with a conditional backward jump, printing
//     and return.
//
//   - Program: an instruction stream with a parallel source line table.
//     Programs serialize to the "LXBC" format (magic, version, canonical
//     CBOR body) for storage in the compile cache or in .loxc files.
//
//   - Folder and Generator: the Folder is a pure partial evaluator over
//     statically known values. The Generator consults it to decide
//     control flow at compile time and to evaluate operators the machine
//     has no instruction for, then emits instructions for the rest.
//
//   - VM: a fixed bank of 256 registers, a named variable store and a
//     condition flag. Labels are resolved when first executed, so only
//     backward jumps can succeed.
//
// # Supported Subset
//
// The register machine has no branch instruction other than the loop's
// backward jump. An if statement therefore needs a condition known at
// compile time, and a while loop needs a comparison as its condition that
// is known to hold on entry. Equality, negation, and/or are folded. Programs
// outside this subset are rejected at compile time with a RuntimeError and
// run only on the tree-walking interpreter.
package bytecode
