// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import "strings"

// Class classifies a region. The top byte holds the paradigm, the next
// byte a category within the paradigm, then a call type and a mode.
type Class uint32

const (
	ClassInternal Class = 0 << 24
	ClassUser     Class = 1 << 24
	ClassMPI      Class = 2 << 24
	ClassOMP      Class = 4 << 24
	ClassARMCI    Class = 8 << 24
	ClassPthread  Class = 16 << 24

	classMask Class = 0xff << 24
)

// Categories of ClassMPI.
const (
	CatMPISetup      Class = 1 << 16
	CatMPICollective Class = 2 << 16
	CatMPIP2P        Class = 4 << 16
	CatMPIRMA        Class = 8 << 16
	CatMPIIO         Class = 16 << 16
)

// Categories of ClassOMP, ClassARMCI and ClassPthread.
const (
	CatOMPParallel Class = 1 << 16
	CatOMPSync     Class = 2 << 16
	CatARMCIComm   Class = 1 << 16
	CatARMCISync   Class = 2 << 16
	CatPthreadMgmt Class = 1 << 16
	CatPthreadSync Class = 2 << 16
)

// Call types of CatMPIRMA.
const (
	TypeMPIRMAComm    Class = 1 << 8
	TypeMPIRMAColl    Class = 2 << 8
	TypeMPIRMAGATS    Class = 4 << 8
	TypeMPIRMAPassive Class = 8 << 8
)

// Modes of the MPI RMA call types.
const (
	ModeRMAPut Class = 1 + iota
	ModeRMAGet
	ModeRMAFence
	ModeRMAWinCreate
	ModeRMAWinFree
	ModeRMAStart
	ModeRMAComplete
	ModeRMAPost
	ModeRMAWait
	ModeRMATest
	ModeRMALock
	ModeRMAUnlock
)

// Classify derives the class of a region from its name and the name of
// the file it was defined in. Measurement system regions are defined in
// the pseudo file "EPIK", MPI regions in "MPI" and so on.
func Classify(name, file string) Class {
	switch {
	case file == "EPIK":
		return ClassInternal
	case file == "MPI" || strings.HasPrefix(name, "MPI_"):
		if len(name) < 4 {
			return ClassMPI
		}
		return classifyMPI(strings.ToLower(name[4:]))
	case file == "OMP" || strings.HasPrefix(name, "!$omp"):
		return classifyOMP(strings.ToLower(name))
	case file == "ARMCI" || strings.HasPrefix(name, "ARMCI_"):
		return classifyARMCI(strings.ToLower(strings.TrimPrefix(name, "ARMCI_")))
	case file == "PTHREAD" || strings.HasPrefix(name, "pthread_"):
		return classifyPthread(strings.ToLower(strings.TrimPrefix(name, "pthread_")))
	}
	return ClassUser
}

func classifyMPI(name string) Class {
	switch {
	case name == "init" || name == "init_thread" || name == "finalize":
		return ClassMPI | CatMPISetup
	case name == "barrier" || strings.HasPrefix(name, "all") || strings.HasPrefix(name, "reduce") ||
		name == "bcast" || name == "gather" || name == "scatter" || name == "scan" || name == "exscan":
		return ClassMPI | CatMPICollective
	case strings.Contains(name, "send") || strings.Contains(name, "recv") ||
		strings.HasPrefix(name, "wait") || strings.HasPrefix(name, "test"):
		return ClassMPI | CatMPIP2P
	case strings.HasPrefix(name, "file_"):
		return ClassMPI | CatMPIIO
	case name == "put":
		return ClassMPI | CatMPIRMA | TypeMPIRMAComm | ModeRMAPut
	case name == "get":
		return ClassMPI | CatMPIRMA | TypeMPIRMAComm | ModeRMAGet
	case strings.HasPrefix(name, "win_"):
		rma := ClassMPI | CatMPIRMA
		switch name[4:] {
		case "fence":
			return rma | TypeMPIRMAColl | ModeRMAFence
		case "create":
			return rma | TypeMPIRMAColl | ModeRMAWinCreate
		case "free":
			return rma | TypeMPIRMAColl | ModeRMAWinFree
		case "start":
			return rma | TypeMPIRMAGATS | ModeRMAStart
		case "complete":
			return rma | TypeMPIRMAGATS | ModeRMAComplete
		case "post":
			return rma | TypeMPIRMAGATS | ModeRMAPost
		case "wait":
			return rma | TypeMPIRMAGATS | ModeRMAWait
		case "test":
			return rma | TypeMPIRMAGATS | ModeRMATest
		case "lock":
			return rma | TypeMPIRMAPassive | ModeRMALock
		case "unlock":
			return rma | TypeMPIRMAPassive | ModeRMAUnlock
		}
		return rma
	}
	return ClassMPI
}

func classifyOMP(name string) Class {
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	switch name {
	case "!$omp parallel":
		return ClassOMP | CatOMPParallel
	case "!$omp barrier", "!$omp ibarrier", "!$omp implicit barrier":
		return ClassOMP | CatOMPSync
	}
	return ClassOMP
}

func classifyARMCI(name string) Class {
	switch {
	case strings.HasPrefix(name, "put") || strings.HasPrefix(name, "get") || strings.HasPrefix(name, "acc"):
		return ClassARMCI | CatARMCIComm
	case strings.Contains(name, "fence") || strings.Contains(name, "barrier") || strings.Contains(name, "lock"):
		return ClassARMCI | CatARMCISync
	}
	return ClassARMCI
}

func classifyPthread(name string) Class {
	switch {
	case strings.HasPrefix(name, "mutex_") || strings.HasPrefix(name, "spin_") || strings.HasPrefix(name, "cond_"):
		return ClassPthread | CatPthreadSync
	case name == "create" || name == "join" || name == "exit" || name == "detach":
		return ClassPthread | CatPthreadMgmt
	}
	return ClassPthread
}

// IsInternal reports whether c belongs to the measurement system.
func IsInternal(c Class) bool { return c&classMask == ClassInternal }

// IsMPIAPI reports whether c is an MPI call.
func IsMPIAPI(c Class) bool { return c&ClassMPI != 0 }

// IsARMCIAPI reports whether c is an ARMCI call.
func IsARMCIAPI(c Class) bool { return c&ClassARMCI != 0 }

func IsOMP(c Class) bool { return c&ClassOMP != 0 }

func IsPthread(c Class) bool { return c&ClassPthread != 0 }

// IsMPIRMA reports whether c is an MPI one-sided call.
func IsMPIRMA(c Class) bool {
	return c&(ClassMPI|CatMPIRMA) == ClassMPI|CatMPIRMA
}

// IsMPIRMAPassive reports whether c is an MPI window lock or unlock.
func IsMPIRMAPassive(c Class) bool {
	mask := ClassMPI | CatMPIRMA | TypeMPIRMAPassive
	return c&mask == mask
}

// IsProgress reports whether a process inside a region of class c lets
// remote one-sided operations progress.
func IsProgress(c Class) bool { return IsMPIAPI(c) || IsARMCIAPI(c) }
