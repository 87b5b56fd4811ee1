package vm

import (
	"github.com/pkg/errors"

	"github.com/jazzml-lang/jazzml/opcode"
)

// faultf builds a fatal dynamic error (§7) that names the opcode in flight,
// matching the spec's requirement that every fatal diagnostic reference the
// offending instruction. pkg/errors.Errorf attaches a stack trace so a
// host can print one without the VM itself depending on any particular
// logging format.
func faultf(in opcode.Instr, format string, args ...interface{}) error {
	msg := errors.Errorf(format, args...)
	return errors.Wrapf(msg, "opcode %s", in.Op)
}

// fault is the operand-less form of faultf, for errors raised in helpers
// (operand-stack pops, call dispatch) whose caller in the dispatch loop wraps
// them with faultf, and for host-level errors such as RunFunc on an unknown
// function id.
func fault(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
