package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRoleCode(t *testing.T) {
	assert.Equal(t, "STU-00001", FormatRoleCode(RoleStudent, 1))
	assert.Equal(t, "STU-00042", FormatRoleCode(RoleStudent, 42))
	assert.Equal(t, "LEC-00007", FormatRoleCode(RoleLecturer, 7))
	assert.Equal(t, "STU-123456", FormatRoleCode(RoleStudent, 123456))
	assert.Equal(t, "", FormatRoleCode(RoleAdmin, 1))
}

func TestSetRoleCode_PopulatesOnlyOneFamily(t *testing.T) {
	student := &User{Role: RoleStudent}
	student.SetRoleCode(RoleCode{Seq: 3, Code: "STU-00003"})

	assert.NotNil(t, student.StudentID)
	assert.NotNil(t, student.StudentSeq)
	assert.Nil(t, student.StaffID)
	assert.Nil(t, student.StaffSeq)

	rc, ok := student.RoleCode()
	assert.True(t, ok)
	assert.Equal(t, int64(3), rc.Seq)
	assert.Equal(t, "STU-00003", rc.Code)

	lecturer := &User{Role: RoleLecturer}
	// simulate a corrupt row carrying student fields
	seq := int64(9)
	code := "STU-00009"
	lecturer.StudentID, lecturer.StudentSeq = &code, &seq

	lecturer.SetRoleCode(RoleCode{Seq: 1, Code: "LEC-00001"})
	assert.Nil(t, lecturer.StudentID)
	assert.Nil(t, lecturer.StudentSeq)
	assert.NotNil(t, lecturer.StaffID)
	assert.Equal(t, "LEC-00001", *lecturer.StaffID)
}

func TestSetRoleCode_AdminClearsBothFamilies(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	admin.SetRoleCode(RoleCode{Seq: 5, Code: "STU-00005"})

	assert.Nil(t, admin.StudentID)
	assert.Nil(t, admin.StaffID)
	_, ok := admin.RoleCode()
	assert.False(t, ok)
}
