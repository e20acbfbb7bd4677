package format

// Section stream names as they appear in section maps.
const (
	SectionAcDbObjects  = "AcDb:AcDbObjects"
	SectionAppInfo      = "AcDb:AppInfo"
	SectionAuxHeader    = "AcDb:AuxHeader"
	SectionHeader       = "AcDb:Header"
	SectionClasses      = "AcDb:Classes"
	SectionHandles      = "AcDb:Handles"
	SectionObjFreeSpace = "AcDb:ObjFreeSpace"
	SectionTemplate     = "AcDb:Template"
	SectionSummaryInfo  = "AcDb:SummaryInfo"
	SectionFileDepList  = "AcDb:FileDepList"
	SectionPreview      = "AcDb:Preview"
	SectionRevHistory   = "AcDb:RevHistory"
)

// Locator record indices of the sequential AC1015-and-earlier layout.
const (
	LocatorHeader       = 0
	LocatorClasses      = 1
	LocatorHandles      = 2
	LocatorObjFreeSpace = 3
	LocatorTemplate     = 4
	LocatorAuxHeader    = 5
)

// SectionHash identifies a section in AC1021 section maps, where names are
// accompanied by a fixed 32-bit hash code.
type SectionHash uint32

const (
	HashSecurity     SectionHash = 0x4A0204EA
	HashFileDepList  SectionHash = 0x6C4205CA
	HashVbaProject   SectionHash = 0x586E0544
	HashAppInfo      SectionHash = 0x3FA0043E
	HashPreview      SectionHash = 0x40AA0473
	HashSummaryInfo  SectionHash = 0x717A060F
	HashRevHistory   SectionHash = 0x60A205B3
	HashAcDbObjects  SectionHash = 0x674C05A9
	HashObjFreeSpace SectionHash = 0x77E2061F
	HashTemplate     SectionHash = 0x4A1404CE
	HashHandles      SectionHash = 0x3F6E0450
	HashClasses      SectionHash = 0x3F54045F
	HashAuxHeader    SectionHash = 0x54F0050A
	HashHeader       SectionHash = 0x32B803D9
	HashUnknown      SectionHash = 0xFFFFFFFF
)

// NameHash returns the AC1021 hash code for a section name, or HashUnknown
// for names outside the fixed set.
func NameHash(name string) SectionHash {
	switch name {
	case SectionHeader:
		return HashHeader
	case SectionClasses:
		return HashClasses
	case SectionHandles:
		return HashHandles
	case SectionAcDbObjects:
		return HashAcDbObjects
	case SectionObjFreeSpace:
		return HashObjFreeSpace
	case SectionTemplate:
		return HashTemplate
	case SectionAuxHeader:
		return HashAuxHeader
	case SectionPreview:
		return HashPreview
	case SectionAppInfo:
		return HashAppInfo
	case SectionSummaryInfo:
		return HashSummaryInfo
	case SectionFileDepList:
		return HashFileDepList
	case SectionRevHistory:
		return HashRevHistory
	default:
		return HashUnknown
	}
}
